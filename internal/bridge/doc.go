// Package bridge runs the external detection engine as a short-lived child
// process and turns what it prints into a typed result or a typed failure.
//
// # Protocol
//
// Each call to Analyze starts exactly one engine process:
//
//	launcher... enginePath
//
// The launcher defaults to "java -jar" for .jar engines. The encoded image
// payload is written to the engine's stdin, which is then closed. The engine
// writes a single JSON response to stdout and diagnostics to stderr.
//
// # Outcomes
//
// Exactly one of these is produced per call:
//
//   - exit 0 with a result object: the decoded wire.DetectionResult
//   - exit 0 with an errorCode object: KindRejected (a domain outcome)
//   - exit 0 with anything else: KindParseFailure, keeping the raw stdout
//   - non-zero exit: KindEngineFailure, keeping exit code, stderr and stdout
//   - deadline passed: KindTimeout, after the engine was killed and reaped
//   - context canceled: KindCanceled, with the same teardown
//   - no engine at any candidate path: KindEngineNotFound
//
// Stdout and stderr are drained while stdin is still being written, so the
// engine may produce any amount of output before reading its input.
//
// # Locating the engine
//
// Locator walks an ordered candidate list. Which list comes first depends on
// the profile: development builds put build output paths first, production
// builds put packaged resource paths first, and both end with named
// fallbacks. Relative candidates resolve against the executable's directory
// and then the working directory.
package bridge
