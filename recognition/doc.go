// Package recognition defines the speech-recognition backend contract the
// chunking engine consumes, plus middleware for logging, tracing, metrics,
// per-call timeouts and shared rate limits.
//
// Backends live in sub-packages and register through a provider.Registry:
//
//	reg := recognition.NewRegistry()
//	reg.RegisterFactory(whisper.ProviderName, whisper.Factory)
//	p, err := reg.Create(cfg.Provider, cfg)
//	p = recognition.Chain(recognition.WithLogging(log), recognition.WithTimeout(cfg.Timeout))(p)
//
// Only the highest-confidence alternative of each result is used, and only
// words carrying explicit start and end times (see BestWords).
package recognition
