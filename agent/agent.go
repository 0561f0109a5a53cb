package agent

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/nstehr/vimy/hivemind/ipc"
	"github.com/nstehr/vimy/hivemind/model"
	"github.com/nstehr/vimy/hivemind/rules"
)

// TypeDoctrine swaps the heuristics mid-match. Its data is a rules.Doctrine.
const TypeDoctrine = "doctrine"

// Agent owns the decision-making for a single player session.
type Agent struct {
	Conn   *ipc.Connection
	Player string
	Race   string
	Brain  *Brain
}

func New(conn *ipc.Connection, brain *Brain) *Agent {
	a := &Agent{Conn: conn, Brain: brain}
	if conn != nil {
		conn.RegisterHandler(ipc.TypeHello, a.HandleHello)
		conn.RegisterHandler(ipc.TypeTick, a.HandleTick)
		conn.RegisterHandler(TypeDoctrine, a.HandleDoctrine)
	}
	return a
}

// HandleHello starts a match. A client that sends no match id gets a fresh one.
func (a *Agent) HandleHello(env ipc.Envelope) (*ipc.Envelope, error) {
	var hello ipc.HelloMessage
	if err := json.Unmarshal(env.Data, &hello); err != nil {
		return nil, fmt.Errorf("unmarshal hello: %w", err)
	}

	matchID := hello.MatchID
	if matchID == "" {
		matchID = uuid.NewString()
	}
	a.Player = hello.Player
	a.Race = hello.Race
	if a.Conn != nil {
		a.Conn.Player = hello.Player
	}
	a.Brain.NewMatch(matchID, a.Player, a.Race)
	slog.Info("player identified", "player", a.Player, "race", a.Race, "match", matchID)

	ack, err := ipc.NewEnvelope(ipc.TypeAck, ipc.AckMessage{Status: "ok", MatchID: matchID})
	if err != nil {
		return nil, err
	}
	return &ack, nil
}

// HandleTick always answers, with an empty directive list when the
// observation could not be used.
func (a *Agent) HandleTick(env ipc.Envelope) (*ipc.Envelope, error) {
	if a.Brain.MatchID() == "" {
		id := uuid.NewString()
		slog.Warn("tick before hello, starting anonymous match", "match", id)
		a.Brain.NewMatch(id, a.Player, a.Race)
	}

	var dirs []model.Directive
	tick := a.Brain.LastTick()
	obs, err := ipc.DecodeTick(env.Data)
	if err != nil {
		dirs = a.Brain.Skip(fmt.Errorf("%w: %w", ErrMissingData, err))
	} else {
		tick = obs.Tick
		dirs = a.Brain.Tick(obs)
	}
	if dirs == nil {
		dirs = []model.Directive{}
	}

	out, err := ipc.NewEnvelope(ipc.TypeDirectives, ipc.DirectivesMessage{
		Tick:       tick,
		Mode:       a.Brain.Mode(),
		Directives: dirs,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *Agent) HandleDoctrine(env ipc.Envelope) (*ipc.Envelope, error) {
	d := rules.DefaultDoctrine()
	if err := json.Unmarshal(env.Data, &d); err != nil {
		return nil, fmt.Errorf("unmarshal doctrine: %w", err)
	}
	if err := a.Brain.SetDoctrine(d); err != nil {
		return nil, err
	}
	ack, err := ipc.NewEnvelope(ipc.TypeAck, ipc.AckMessage{Status: "ok", MatchID: a.Brain.MatchID()})
	if err != nil {
		return nil, err
	}
	return &ack, nil
}
