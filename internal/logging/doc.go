// Package logging provides structured logging with per-module log levels.
//
// Records are routed to every available output:
//   - stdout (text or json) when a terminal, pipe, socket or file is attached
//   - the systemd journal when journald is reachable
//   - an in-memory ring buffer served by GET /api/logs
//
// Initialize once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"ffmpeg": "warn",
//			"api":    "debug",
//		},
//	})
//
// Then ask for a module logger:
//
//	logger := logging.GetLogger("supervisor")
//	logger.Info("Stream started", "session", id)
//
// Loggers obtained before Initialize keep working; their level is updated in
// place when Initialize runs.
//
// Modules used by restreamer: supervisor, ffmpeg, api, http, config, main.
//
// Journal entries carry SYSLOG_IDENTIFIER=restreamer and one upper-cased
// field per attribute:
//
//	journalctl -t restreamer -f
//	journalctl -t restreamer MODULE=ffmpeg -p err
package logging
