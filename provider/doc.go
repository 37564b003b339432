// Package provider implements a small generic registry for swappable
// backends selected by name from configuration.
//
// Usage:
//
//	reg := provider.NewRegistry[recognition.Provider, recognition.Config]()
//	reg.RegisterFactory("whisper", whisper.Factory)
//	p, err := reg.Create(cfg.Provider, cfg)
package provider
