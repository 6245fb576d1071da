package classify

// Lookup resolves a device by its base name
type Lookup interface {
	Get(name string) (*Device, bool)
}

// DeviceIndex maps nmoBaseName to the device record. It is built once per
// run and read-only afterwards.
type DeviceIndex struct {
	// Primary storage: base name -> device
	Entities map[string]*Device

	// Devices replaced by a later row with the same base name, in input order
	Shadowed []*Device
}

// NewIndex builds the index from devices. Devices without a base name are
// skipped; on duplicate base names the later device wins.
func NewIndex(devices []Device) *DeviceIndex {
	idx := &DeviceIndex{
		Entities: make(map[string]*Device, len(devices)),
	}

	for i := range devices {
		d := &devices[i]
		if d.BaseName == "" {
			continue
		}
		if prev, ok := idx.Entities[d.BaseName]; ok {
			idx.Shadowed = append(idx.Shadowed, prev)
		}
		idx.Entities[d.BaseName] = d
	}

	return idx
}

// Get returns the device indexed under name
func (idx *DeviceIndex) Get(name string) (*Device, bool) {
	d, ok := idx.Entities[name]
	return d, ok
}

// HeadGroupOf returns the ngHeadDevice of the named device, or "" if it is
// not indexed.
func (idx *DeviceIndex) HeadGroupOf(name string) string {
	if d, ok := idx.Entities[name]; ok {
		return d.HeadGroup
	}
	return ""
}

// ParentOf returns the headDeviceName of the named device, or "" if it is
// not indexed.
func (idx *DeviceIndex) ParentOf(name string) string {
	if d, ok := idx.Entities[name]; ok {
		return d.HeadDevice
	}
	return ""
}

// Len returns the number of indexed devices
func (idx *DeviceIndex) Len() int {
	return len(idx.Entities)
}
