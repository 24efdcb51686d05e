package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/swarmchat-backend/internal/logger"
	"github.com/yungbote/swarmchat-backend/internal/services"
	"github.com/yungbote/swarmchat-backend/internal/utils"
)

// Simulated participants for manual testing. Bots join a session by code,
// wait for it to start, then chat in their assigned subgroups so the full
// deliberation flow can be exercised solo.

var botNames = []string{
	"Ava", "Marcus", "Priya", "Jordan", "Elena",
	"Kai", "Sofia", "Liam", "Nadia", "Oscar",
	"Zara", "Finn", "Maya", "Ravi", "Chloe",
}

var botPersonas = []string{
	"pragmatic and solution-oriented, always looking for actionable next steps",
	"skeptical and analytical, likes to challenge assumptions with evidence",
	"empathetic and people-focused, thinks about how things affect individuals",
	"creative and unconventional, suggests ideas others wouldn't think of",
	"experienced and anecdotal, draws on real-world stories and examples",
	"systematic and structured, wants to break problems into clear steps",
	"enthusiastic and optimistic, builds on others' ideas with energy",
	"cautious and risk-aware, considers what could go wrong",
	"philosophical and big-picture, connects ideas to broader themes",
	"direct and concise, cuts through complexity to the core point",
	"collaborative and bridging, finds connections between different viewpoints",
	"curious and question-driven, asks probing questions to deepen the discussion",
	"data-oriented and precise, wants evidence before reaching conclusions",
	"passionate and values-driven, argues from principles and convictions",
	"humorous and disarming, uses wit to make points memorable",
}

const botSystemPrompt = `You are %s, a participant in a group discussion.
Your personality: %s

Rules:
- Write ONE short message (1-3 sentences max).
- Be conversational and natural — like a real person chatting, not an essay.
- Stay on topic. The discussion is about: "%s"
- Don't use bullet points, headers, or markdown. Just plain conversational text.
- Don't start with "I think" every time — vary your openings.
- Have a distinct voice. Be opinionated. Disagree sometimes.
- Reference what others said when given chat history.
- Never mention that you are an AI or bot.`

type bot struct {
	name    string
	persona string
}

type sharedHistory struct {
	mu    sync.Mutex
	lines []string
}

func (h *sharedHistory) add(line string) {
	h.mu.Lock()
	h.lines = append(h.lines, line)
	h.mu.Unlock()
}

func (h *sharedHistory) recent(n int) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.lines) <= n {
		return append([]string(nil), h.lines...)
	}
	return append([]string(nil), h.lines[len(h.lines)-n:]...)
}

type runner struct {
	log     *logger.Logger
	base    string
	wsBase  string
	gen     services.TextGenerator
	history *sharedHistory
	client  *http.Client
}

func main() {
	numBots := flag.Int("bots", 8, "number of bots")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Println("usage: bots [--bots N] <JOIN_CODE>")
		os.Exit(1)
	}
	joinCode := strings.ToUpper(flag.Arg(0))

	log, err := logger.New("development")
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	gen, err := services.NewTextGenerator(log)
	if err != nil {
		log.Error("Could not init TextGenerator", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := &runner{
		log:     log,
		base:    utils.GetEnv("BOTS_API_BASE", "http://localhost:8080", log),
		wsBase:  utils.GetEnv("BOTS_WS_BASE", "ws://localhost:8080", log),
		gen:     gen,
		history: &sharedHistory{},
		client:  &http.Client{Timeout: 30 * time.Second},
	}

	session, err := r.getJSON(ctx, "/api/sessions/join/"+joinCode)
	if err != nil {
		log.Error("Invalid join code", "joinCode", joinCode, "error", err)
		os.Exit(1)
	}
	topic, _ := session["title"].(string)
	log.Info("Session found", "topic", topic, "status", session["status"])

	count := *numBots
	if count > len(botNames) {
		count = len(botNames)
	}
	nameIdx := rand.Perm(len(botNames))[:count]
	personaIdx := rand.Perm(len(botPersonas))[:count]

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < count; i++ {
		b := bot{name: botNames[nameIdx[i]], persona: botPersonas[personaIdx[i]]}
		g.Go(func() error {
			r.runBot(gctx, b, joinCode, topic)
			return nil
		})
	}
	log.Info("Bots running", "count", count)
	_ = g.Wait()
}

func (r *runner) runBot(ctx context.Context, b bot, joinCode, topic string) {
	joined, err := r.postJSON(ctx, "/api/participants", map[string]any{
		"display_name": b.name,
		"join_code":    joinCode,
	})
	if err != nil {
		r.log.Error("Bot failed to join", "bot", b.name, "error", err)
		return
	}
	participantID, _ := joined["id"].(string)
	sessionID, _ := joined["session_id"].(string)
	r.log.Info("Bot joined", "bot", b.name, "participantID", participantID)

	// Wait for the partitioner to hand out a subgroup.
	subgroupID, _ := joined["subgroup_id"].(string)
	for subgroupID == "" {
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
		me, err := r.getJSON(ctx, "/api/participants/"+participantID)
		if err != nil {
			continue
		}
		subgroupID, _ = me["subgroup_id"].(string)
	}
	r.log.Info("Bot assigned", "bot", b.name, "subgroupID", subgroupID)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, r.wsBase+"/ws/chat/"+participantID+"/"+subgroupID, nil)
	if err != nil {
		r.log.Error("Bot websocket failed", "bot", b.name, "error", err)
		return
	}
	defer conn.Close()

	// Stagger openers so the bots don't all talk at once.
	if !sleepCtx(ctx, time.Duration(3+rand.Intn(9))*time.Second) {
		return
	}
	r.say(ctx, conn, b, topic, true)

	followups := 2 + rand.Intn(3)
	for i := 0; i < followups; i++ {
		if !sleepCtx(ctx, time.Duration(15+rand.Intn(30))*time.Second) {
			return
		}
		if !r.sessionActive(ctx, sessionID) {
			r.log.Info("Session ended, bot stopping", "bot", b.name)
			return
		}
		r.say(ctx, conn, b, topic, false)
	}

	// Done chatting; stay connected until the session completes.
	for {
		if !sleepCtx(ctx, 10*time.Second) {
			return
		}
		if !r.sessionActive(ctx, sessionID) {
			r.log.Info("Session ended, bot disconnecting", "bot", b.name)
			return
		}
	}
}

func (r *runner) say(ctx context.Context, conn *websocket.Conn, b bot, topic string, opener bool) {
	system := fmt.Sprintf(botSystemPrompt, b.name, b.persona, topic)
	var prompt string
	if opener {
		prompt = fmt.Sprintf("The discussion topic is: %q\n\nYou're joining the conversation. Share your initial take.", topic)
	} else {
		prompt = fmt.Sprintf("The discussion topic is: %q\n\nRecent messages:\n%s\n\nRespond naturally to the conversation. Build on, challenge, or add to what's been said.",
			topic, strings.Join(r.history.recent(6), "\n"))
	}

	msg, err := r.gen.GenerateText(ctx, prompt, system)
	if err != nil {
		r.log.Warn("Bot generation failed, using fallback", "bot", b.name, "error", err)
		msg = "I hadn't considered that perspective before."
	}
	msg = clampMessage(msg)
	if msg == "" {
		return
	}

	err = conn.WriteJSON(map[string]any{
		"event": "chat:message",
		"data":  map[string]any{"content": msg},
	})
	if err != nil {
		r.log.Warn("Bot send failed", "bot", b.name, "error", err)
		return
	}
	r.history.add(b.name + ": " + msg)
}

// clampMessage trims quoting and caps the message at 500 characters, cutting
// on rune boundaries so multibyte text survives the truncation.
func clampMessage(msg string) string {
	msg = strings.Trim(strings.TrimSpace(msg), `"'`)
	if runes := []rune(msg); len(runes) > 500 {
		msg = string(runes[:497]) + "..."
	}
	return msg
}

func (r *runner) sessionActive(ctx context.Context, sessionID string) bool {
	session, err := r.getJSON(ctx, "/api/sessions/"+sessionID)
	if err != nil {
		return true
	}
	status, _ := session["status"].(string)
	return status == "active"
}

func (r *runner) getJSON(ctx context.Context, path string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.base+path, nil)
	if err != nil {
		return nil, err
	}
	return r.do(req)
}

func (r *runner) postJSON(ctx context.Context, path string, body map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.base+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return r.do(req)
}

func (r *runner) do(req *http.Request) (map[string]any, error) {
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
