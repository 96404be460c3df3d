// Package logger provides structured logging for psharvest.
//
// It wraps zerolog behind a small Logger interface so packages can accept a
// logger without importing zerolog directly, and so tests can swap in
// TestLogger to assert on what was logged.
//
//	err := logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("component", "harvest")
//	log.InfoWithFields("Round complete", map[string]interface{}{
//	    "round": 3,
//	    "records": 1200,
//	})
package logger
