package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyFile       = "file"
	KeyKind       = "kind"
	KeyBundle     = "bundle"
	KeyBytes      = "bytes"
	KeyFragments  = "fragments"
	KeyPage       = "page"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyRemoteAddr = "remote_addr"
	KeyUserAgent  = "user_agent"
	KeyRequestID  = "request_id"
	KeyProvider   = "provider"
	KeyRecipient  = "recipient"
	KeyAddr       = "addr"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func File(f string) slog.Attr         { return slog.String(KeyFile, f) }
func Kind(k string) slog.Attr         { return slog.String(KeyKind, k) }
func Bundle(b string) slog.Attr       { return slog.String(KeyBundle, b) }
func Bytes(n int) slog.Attr           { return slog.Int(KeyBytes, n) }
func Fragments(n int) slog.Attr       { return slog.Int(KeyFragments, n) }
func Page(p string) slog.Attr         { return slog.String(KeyPage, p) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func RemoteAddr(a string) slog.Attr   { return slog.String(KeyRemoteAddr, a) }
func UserAgent(ua string) slog.Attr   { return slog.String(KeyUserAgent, ua) }
func RequestID(id string) slog.Attr   { return slog.String(KeyRequestID, id) }
func Provider(p string) slog.Attr     { return slog.String(KeyProvider, p) }
func Recipient(r string) slog.Attr    { return slog.String(KeyRecipient, r) }
func Addr(a string) slog.Attr         { return slog.String(KeyAddr, a) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
