package log

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

// MaskValue replaces every redacted value.
const MaskValue = "***REDACTED***"

// minSecretLen keeps very short header values from masking unrelated text.
const minSecretLen = 4

// sensitiveKeys are attribute keys whose values are always masked.
// Keys are compared lowercase.
var sensitiveKeys = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"x-auth-token":        true,
	"api_key":             true,
	"apikey":              true,
	"session":             true,
	"session_id":          true,
}

// sensitiveKeywords mask any key containing them. A bare "key" is not
// listed; it would hide attributes such as cache_key.
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "auth", "credential", "private",
}

// sensitivePatterns mask a string value regardless of its key.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`), // JWT
	regexp.MustCompile(`(?i)^bearer\s+.+`),
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),
	regexp.MustCompile(`^AKIA[0-9A-Z]{16}$`),
	regexp.MustCompile(`(?i)-----BEGIN.*(PRIVATE|SECRET).*KEY-----`),
}

// userinfoPattern matches the "user:pass@" part of a URL anywhere in a
// string, including inside *url.Error messages.
var userinfoPattern = regexp.MustCompile(`([a-zA-Z][a-zA-Z0-9+.-]*://)[^/\s@]+@`)

// secretQueryPattern matches query parameters that usually carry
// credentials in documentation links, e.g. signed asset URLs.
var secretQueryPattern = regexp.MustCompile(
	`([?&](?i:token|access_token|api_key|apikey|key|sig|signature|password|auth|x-amz-signature|x-amz-credential)=)[^&#\s"']*`)

// SecureHandler wraps an slog.Handler and masks sensitive data before
// records reach it. Credentials inside URLs, well-known secret keys and
// the values of user-supplied request headers never reach the output.
type SecureHandler struct {
	handler slog.Handler
	secrets []string
}

// NewSecureHandler wraps handler. secrets are literal values, such as
// custom header values, to mask wherever they appear. A nil handler falls
// back to slog.Default().Handler().
func NewSecureHandler(handler slog.Handler, secrets ...string) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	var kept []string
	for _, s := range secrets {
		if len(s) >= minSecretLen {
			kept = append(kept, s)
		}
	}
	return &SecureHandler{handler: handler, secrets: kept}
}

// Enabled delegates to the wrapped handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle masks the message and every attribute, then passes the record on.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	clean := slog.NewRecord(r.Time, r.Level, h.redactText(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(h.redactAttr(a))
		return true
	})
	return h.handler.Handle(ctx, clean)
}

// WithAttrs masks attrs before attaching them.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = h.redactAttr(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(clean), secrets: h.secrets}
}

// WithGroup returns a handler that nests attributes under name.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name), secrets: h.secrets}
}

func (h *SecureHandler) redactAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		clean := make([]slog.Attr, len(group))
		for i, ga := range group {
			clean[i] = h.redactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(clean...)}
	}

	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}

	switch a.Value.Kind() {
	case slog.KindString:
		s := a.Value.String()
		if isSensitiveValue(s) {
			return slog.String(a.Key, MaskValue)
		}
		if clean := h.redactText(s); clean != s {
			return slog.String(a.Key, clean)
		}
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok && err != nil {
			msg := err.Error()
			if clean := h.redactText(msg); clean != msg {
				return slog.String(a.Key, clean)
			}
		}
	}
	return a
}

// redactText applies RedactURL and masks the configured secrets.
func (h *SecureHandler) redactText(s string) string {
	s = RedactURL(s)
	for _, secret := range h.secrets {
		if strings.Contains(s, secret) {
			s = strings.ReplaceAll(s, secret, MaskValue)
		}
	}
	return s
}

// RedactURL removes "user:pass@" from every URL in s and masks the values
// of credential-like query parameters.
func RedactURL(s string) string {
	if !strings.Contains(s, "://") {
		return s
	}
	if strings.Contains(s, "@") {
		s = userinfoPattern.ReplaceAllString(s, "$1")
	}
	if strings.Contains(s, "=") {
		s = secretQueryPattern.ReplaceAllString(s, "${1}"+MaskValue)
	}
	return s
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	if sensitiveKeys[key] {
		return true
	}
	for _, kw := range sensitiveKeywords {
		if strings.Contains(key, kw) {
			return true
		}
	}
	return false
}

func isSensitiveValue(value string) bool {
	for _, p := range sensitivePatterns {
		if p.MatchString(value) {
			return true
		}
	}
	return false
}
