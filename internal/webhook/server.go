// internal/webhook/server.go
package webhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/user/agendabot/internal/reply"
	"github.com/user/agendabot/internal/types"
	"github.com/user/agendabot/internal/whatsapp"
)

// Banner is the body served on GET /.
const Banner = "🚀 Servidor activo. Webhook WhatsApp Calendar Bot listo ✅"

// InboundHandler accepts a message for asynchronous processing.
type InboundHandler func(ctx context.Context, msg types.Message) error

// AskHandler processes a message synchronously and returns the reply text.
type AskHandler func(ctx context.Context, msg types.Message) (string, error)

// Option configures a Server.
type Option func(*Server)

// WithReplies lets the server answer a WhatsApp sender directly when their
// message could not be queued.
func WithReplies(sender types.Sender) Option {
	return func(s *Server) { s.sender = sender }
}

// Server is a lightweight HTTP handler for webhook endpoints.
type Server struct {
	inbound InboundHandler
	ask     AskHandler
	sender  types.Sender
	mux     *http.ServeMux
}

// NewServer creates a webhook Server. WhatsApp notifications go to inbound;
// ad-hoc JSON requests go to ask.
func NewServer(inbound InboundHandler, ask AskHandler, opts ...Option) *Server {
	s := &Server{
		inbound: inbound,
		ask:     ask,
		mux:     http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /webhook", s.handleAdHoc)
	s.mux.HandleFunc("POST /webhook/whatsapp", s.handleWhatsApp)
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// adHocRequest is the JSON body for POST /webhook.
type adHocRequest struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

func (s *Server) handleAdHoc(w http.ResponseWriter, r *http.Request) {
	var req adHocRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Text) == "" || req.Sender == "" {
		http.Error(w, `{"error":"sender and text are required"}`, http.StatusBadRequest)
		return
	}

	msg := types.Message{
		Sender: types.SenderKey(req.Sender),
		Text:   norm.NFC.String(req.Text),
		Source: "http",
	}
	resp, err := s.ask(r.Context(), msg)
	if err != nil {
		// The reply already tells the user the operation failed.
		slog.Error("webhook ad-hoc handler failed", "sender", msg.Sender, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"response": resp})
}

// handleWhatsApp acknowledges every well-formed notification so the Cloud
// API does not redeliver it. Processing happens after the response; a
// message that cannot be queued gets the generic failure reply instead.
func (s *Server) handleWhatsApp(w http.ResponseWriter, r *http.Request) {
	msg, ok, err := whatsapp.ParseWebhook(r.Body)
	if err != nil {
		slog.Warn("invalid whatsapp notification", "error", err)
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if !ok || strings.TrimSpace(msg.Text) == "" {
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := s.inbound(r.Context(), msg); err != nil {
		slog.Error("enqueue whatsapp message failed", "sender", msg.Sender, "error", err)
		s.replyFailure(r.Context(), msg.Sender)
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) replyFailure(ctx context.Context, to types.SenderKey) {
	if s.sender == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.sender.Send(ctx, to, reply.Failure); err != nil {
		slog.Warn("failure reply not delivered", "to", to, "error", err)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(Banner))
}
