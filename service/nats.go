package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// ResolveSubjectPrefix is the subject space for resolution requests.
// Clients request on body.resolve.<category>.<name> with an optional
// JSON payload of {"version": ..., "bindings": {...}} and receive the
// emitted body text, or an error JSON when resolution fails.
const ResolveSubjectPrefix = "body.resolve."

// cacheBucket is the JetStream KV bucket holding emitted output.
const cacheBucket = "PROPANE_RESOLVED"

// resolveTimeout bounds a single NATS-driven resolution.
const resolveTimeout = 10 * time.Second

// Responder answers resolution requests over NATS request-reply.
type Responder struct {
	svc    *Service
	sub    *nats.Subscription
	logger *slog.Logger
}

// natsRequest is the optional request payload.
type natsRequest struct {
	Version  string            `json:"version,omitempty"`
	Bindings map[string]string `json:"bindings,omitempty"`
}

// natsError is the reply payload on failure.
type natsError struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// NewResponder subscribes to the resolution subject space.
func NewResponder(conn *nats.Conn, svc *Service, logger *slog.Logger) (*Responder, error) {
	r := &Responder{svc: svc, logger: logger}

	sub, err := conn.Subscribe(ResolveSubjectPrefix+">", r.handle)
	if err != nil {
		return nil, err
	}
	r.sub = sub
	return r, nil
}

// Stop unsubscribes the responder.
func (r *Responder) Stop() {
	if r.sub != nil {
		_ = r.sub.Unsubscribe()
	}
}

func (r *Responder) handle(msg *nats.Msg) {
	category, name, ok := splitResolveSubject(msg.Subject)
	if !ok {
		r.reply(msg, nil, natsError{Error: "subject must be body.resolve.<category>.<name>", Kind: "bad_request"})
		return
	}

	var req natsRequest
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			r.reply(msg, nil, natsError{Error: "invalid JSON payload: " + err.Error(), Kind: "bad_request"})
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	text, _, err := r.svc.ResolveText(ctx, category, name, req.Version, req.Bindings)
	if err != nil {
		kind, _ := classifyError(err)
		r.logger.Warn("NATS resolution failed",
			"subject", msg.Subject,
			"kind", kind,
			"error", err)
		r.reply(msg, nil, natsError{Error: err.Error(), Kind: kind})
		return
	}

	r.reply(msg, []byte(text), natsError{})
}

func (r *Responder) reply(msg *nats.Msg, text []byte, e natsError) {
	if msg.Reply == "" {
		return
	}
	data := text
	if e.Error != "" {
		data, _ = json.Marshal(e)
	}
	if err := msg.Respond(data); err != nil {
		r.logger.Warn("Failed to send NATS reply", "subject", msg.Subject, "error", err)
	}
}

// splitResolveSubject extracts (category, name) from a resolution
// subject. Exactly two tokens must follow the prefix.
func splitResolveSubject(subject string) (category, name string, ok bool) {
	rest, found := strings.CutPrefix(subject, ResolveSubjectPrefix)
	if !found {
		return "", "", false
	}
	parts := strings.Split(rest, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// kvKeyUnsafe matches characters not allowed in a KV key token.
var kvKeyUnsafe = regexp.MustCompile(`[^-a-zA-Z0-9_]`)

// cacheKey builds a deterministic KV key for a resolution request:
// identity tokens plus a digest over the sorted bindings.
func cacheKey(category, name, version string, raw map[string]string) string {
	names := make([]string, 0, len(raw))
	for k := range raw {
		names = append(names, k)
	}
	sort.Strings(names)

	h := sha256.New()
	for _, k := range names {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(raw[k]))
		h.Write([]byte{0})
	}
	digest := hex.EncodeToString(h.Sum(nil))[:16]

	if version == "" {
		version = "latest"
	}
	return strings.Join([]string{
		sanitizeKeyToken(category),
		sanitizeKeyToken(name),
		sanitizeKeyToken(version),
		digest,
	}, ".")
}

func sanitizeKeyToken(s string) string {
	return kvKeyUnsafe.ReplaceAllString(s, "_")
}
