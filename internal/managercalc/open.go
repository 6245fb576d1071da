package managercalc

import (
	"github.com/veb86/GristWidgets-sub001/internal/config"
	"github.com/veb86/GristWidgets-sub001/internal/host"
)

// OpenHost returns the host adapter selected by cfg and a function that
// releases it.
func OpenHost(cfg *config.Config) (host.API, func() error, error) {
	if cfg.UseDocFile() {
		doc, err := host.OpenDocFile(cfg.Host.File)
		if err != nil {
			return nil, nil, err
		}
		return doc, doc.Close, nil
	}

	client, err := host.NewGristClient(cfg.Host.Server, cfg.Host.DocID, cfg.Host.APIKey, cfg.Host.Timeout)
	if err != nil {
		return nil, nil, err
	}
	return client, func() error { return nil }, nil
}
