// Package process supervises the encoder subprocess.
//
// Process wraps os/exec for a single subprocess:
//   - own process group, stdin closed, stdout/stderr streamed line by line
//   - SIGINT for graceful stop, SIGKILL to the group when that times out
//   - pluggable log-level parsing of output lines
//
// Supervisor owns at most one encoder at a time and the stream status
// record shown to clients:
//
//	idle ──start──▶ starting ──spawned──▶ running
//	                   │                     │ error line / exit != 0
//	                   ▼                     ▼
//	                 error ◀─────────────── error
//	running ──stop──▶ stopped     running ──exit 0──▶ stopped
//
// Every status change goes through Apply, a pure function over discrete
// events, under a single mutex. Output and exit callbacks carry the session
// they belong to, so events from a replaced session are dropped.
//
// Example:
//
//	sup := process.NewSupervisor(&process.Options{
//	    Logger: logging.GetLogger("supervisor"),
//	    OnStateChange: func(id string, old, new process.Status) {
//	        log.Printf("%s: %s -> %s", id, old.State, new.State)
//	    },
//	})
//	res, err := sup.Start(ctx, config.NewLaunchFile("stream.toml"))
//	...
//	defer sup.Shutdown(ctx)
package process
