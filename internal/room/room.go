// Package room runs one goroutine per poker room. All table mutations
// happen on that goroutine, fed by a bounded event queue, so the table
// itself needs no locking.
package room

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/berryhq/berrypoker/internal/poker"
	"github.com/berryhq/berrypoker/internal/protocol"
	"github.com/berryhq/berrypoker/internal/store"
)

const (
	eventQueueSize     = 64
	maxPersistFailures = 5

	defaultPersistInterval = 30 * time.Second
	defaultHandStartDelay  = time.Second
)

// Persister is the slice of the store a room writes through.
type Persister interface {
	SaveRoomState(roomID string, state []byte, now time.Time) error
	DeleteRoom(roomID string) error
	RecordHand(rec store.HandRecord, now time.Time) (int64, error)
}

// Config wires a room's dependencies. Zero values get defaults; a nil
// Store disables persistence (tests).
type Config struct {
	Logger          *log.Logger
	Clock           quartz.Clock
	Store           Persister
	PersistInterval time.Duration
	HandStartDelay  time.Duration
	TableOptions    []poker.Option
	OnClose         func(roomID string)
}

func (c *Config) fill() {
	if c.Logger == nil {
		c.Logger = log.Default()
	}
	if c.Clock == nil {
		c.Clock = quartz.NewReal()
	}
	if c.PersistInterval <= 0 {
		c.PersistInterval = defaultPersistInterval
	}
	if c.HandStartDelay <= 0 {
		c.HandStartDelay = defaultHandStartDelay
	}
}

type sessionInfo struct {
	name string // bound identity, "" for an anonymous spectator
}

// Room owns one table and every connection watching it.
type Room struct {
	id    string
	table *poker.Table
	log   *log.Logger
	clock quartz.Clock
	store Persister

	persistEvery time.Duration
	handDelay    time.Duration
	onClose      func(string)

	events chan event
	done   chan struct{}
	stopAt sync.Once

	deleteOnStop atomic.Bool
	lastActive   atomic.Int64

	// Everything below is touched only by the room goroutine.
	sessions      map[Session]*sessionInfo
	byName        map[string]Session
	pendingLeave  map[string]bool
	dirty         bool
	persistFails  int
	announcedHand int
	promptedHand  int
	timerPending  bool
}

// New creates a room around a fresh table.
func New(id string, settings poker.Settings, cfg Config) (*Room, error) {
	table, err := poker.NewTable(id, settings, cfg.TableOptions...)
	if err != nil {
		return nil, err
	}
	return fromTable(table, cfg), nil
}

// Restore rebuilds a room from a persisted snapshot. Players must
// reconnect; mid-hand state resumes where it stopped.
func Restore(state []byte, cfg Config) (*Room, error) {
	table, err := poker.UnmarshalSnapshot(state, cfg.TableOptions...)
	if err != nil {
		return nil, err
	}
	return fromTable(table, cfg), nil
}

func fromTable(table *poker.Table, cfg Config) *Room {
	cfg.fill()
	r := &Room{
		id:           table.ID(),
		table:        table,
		log:          cfg.Logger.WithPrefix("room." + table.ID()),
		clock:        cfg.Clock,
		store:        cfg.Store,
		persistEvery: cfg.PersistInterval,
		handDelay:    cfg.HandStartDelay,
		onClose:      cfg.OnClose,
		events:       make(chan event, eventQueueSize),
		done:         make(chan struct{}),
		sessions:     make(map[Session]*sessionInfo),
		byName:       make(map[string]Session),
		pendingLeave: make(map[string]bool),
	}
	r.touch()
	// A restored hand may already be waiting on the next-hand pause.
	if table.Phase() == poker.PhaseHandOver {
		if res := table.LastResult(); res != nil {
			r.announcedHand = res.HandNumber
		}
		r.scheduleNextHand()
	}
	return r
}

func (r *Room) ID() string { return r.id }

// LastActive is when the room last saw a client event.
func (r *Room) LastActive() time.Time {
	return time.Unix(0, r.lastActive.Load())
}

func (r *Room) touch() {
	r.lastActive.Store(r.clock.Now().UnixNano())
}

// Stop shuts the room down from outside the loop. With deleteState the
// persisted snapshot is dropped too (idle purge).
func (r *Room) Stop(deleteState bool) {
	r.deleteOnStop.Store(deleteState)
	r.stopAt.Do(func() { close(r.done) })
}

// Run consumes the event queue until ctx is cancelled or the room
// stops. It flushes a final snapshot on graceful shutdown.
func (r *Room) Run(ctx context.Context) {
	ticker := r.clock.NewTicker(r.persistEvery)
	defer ticker.Stop()
	defer r.cleanup()

	for {
		select {
		case <-ctx.Done():
			r.persistIfDirty()
			return
		case <-r.done:
			return
		case ev := <-r.events:
			r.handle(ev)
			select {
			case <-r.done:
				return
			default:
			}
		case <-ticker.C:
			r.persistIfDirty()
		}
	}
}

func (r *Room) cleanup() {
	r.stopAt.Do(func() { close(r.done) })
	for sess := range r.sessions {
		sess.Close()
	}
	if r.deleteOnStop.Load() && r.store != nil {
		if err := r.store.DeleteRoom(r.id); err != nil {
			r.log.Error("delete room state", "err", err)
		}
	}
	if r.onClose != nil {
		r.onClose(r.id)
	}
	r.log.Info("room closed")
}

func (r *Room) handle(ev event) {
	switch ev := ev.(type) {
	case clientEvent:
		r.touch()
		r.handleMessage(ev.sess, ev.msg)
	case disconnectEvent:
		r.handleDisconnect(ev.sess)
	case handTimerEvent:
		r.timerPending = false
		r.startNextHand()
	case infoEvent:
		ev.reply <- r.buildInfo()
	}
}

// handlers is the type-keyed dispatch table for inbound frames.
var handlers = map[string]func(*Room, Session, *protocol.Message){
	protocol.TypeSpectate:       (*Room).handleSpectate,
	protocol.TypeJoin:           (*Room).handleJoin,
	protocol.TypeLeave:          (*Room).handleLeave,
	protocol.TypeStartGame:      (*Room).handleStartGame,
	protocol.TypeAction:         (*Room).handleAction,
	protocol.TypeSitOut:         (*Room).handleSitOut,
	protocol.TypeChat:           (*Room).handleChat,
	protocol.TypeAddChips:       (*Room).handleAddChips,
	protocol.TypeRunTwiceChoice: (*Room).handleRunTwiceChoice,
	protocol.TypeWebRTCOffer:    (*Room).handleSignal,
	protocol.TypeWebRTCAnswer:   (*Room).handleSignal,
	protocol.TypeWebRTCICE:      (*Room).handleSignal,
}

func (r *Room) handleMessage(sess Session, msg *protocol.Message) {
	if _, ok := r.sessions[sess]; !ok {
		r.sessions[sess] = &sessionInfo{}
	}
	h, ok := handlers[msg.Type]
	if !ok {
		r.sendError(sess, fmt.Sprintf("unknown message type %q", msg.Type))
		return
	}
	h(r, sess, msg)
}

func (r *Room) sendError(sess Session, message string) {
	sess.Send(protocol.MustNew(protocol.TypeError, protocol.Error{Message: message}))
}

// replyErr reports a policy failure to the sender. Anything else is a
// logic bug and brings the room down.
func (r *Room) replyErr(sess Session, err error) {
	if poker.IsPolicy(err) {
		r.sendError(sess, err.Error())
		return
	}
	r.fatal(err)
}

func (r *Room) fatal(err error) {
	r.log.Error("fatal room error", "err", err)
	for sess := range r.sessions {
		r.sendError(sess, "internal error, room closing")
	}
	// Keep the last good snapshot for inspection.
	r.Stop(false)
}

// bindName attaches an identity to a session, displacing any stale
// connection bound to the same name.
func (r *Room) bindName(sess Session, name string) {
	si := r.sessions[sess]
	if si.name == name {
		r.byName[name] = sess
		return
	}
	if si.name != "" && r.byName[si.name] == sess {
		delete(r.byName, si.name)
	}
	si.name = name
	if name == "" {
		return
	}
	if old, ok := r.byName[name]; ok && old != sess {
		if oldInfo := r.sessions[old]; oldInfo != nil {
			oldInfo.name = ""
		}
		old.Close()
	}
	r.byName[name] = sess
}

func (r *Room) sessionName(sess Session) string {
	if si := r.sessions[sess]; si != nil {
		return si.name
	}
	return ""
}

func (r *Room) handleSpectate(sess Session, msg *protocol.Message) {
	var req protocol.Spectate
	if len(msg.Data) > 0 {
		if err := msg.Decode(&req); err != nil {
			r.sendError(sess, err.Error())
			return
		}
	}
	r.bindName(sess, req.PlayerName)
	if p := r.table.PlayerByName(req.PlayerName); p != nil {
		// Reconnect: the name is already seated, rebind it.
		sess.Send(protocol.MustNew(protocol.TypeJoined, protocol.Joined{
			PlayerName: p.Name, Seat: p.Seat, Stack: p.Stack,
		}))
	} else {
		sess.Send(protocol.MustNew(protocol.TypeSpectating, protocol.Spectating{RoomID: r.id}))
	}
	sess.Send(r.stateFor(req.PlayerName))
}

func (r *Room) handleJoin(sess Session, msg *protocol.Message) {
	var req protocol.Join
	if err := msg.Decode(&req); err != nil {
		r.sendError(sess, err.Error())
		return
	}
	if req.PlayerName == "" {
		r.sendError(sess, "player_name is required")
		return
	}

	if p := r.table.PlayerByName(req.PlayerName); p != nil {
		// Already seated: treat as reconnect rather than a duplicate.
		r.bindName(sess, req.PlayerName)
		delete(r.pendingLeave, req.PlayerName)
		sess.Send(protocol.MustNew(protocol.TypeJoined, protocol.Joined{
			PlayerName: p.Name, Seat: p.Seat, Stack: p.Stack,
		}))
		sess.Send(r.stateFor(req.PlayerName))
		return
	}

	seat := -1
	if req.Seat != nil {
		seat = *req.Seat
	}
	p, err := r.table.AddPlayer(req.PlayerName, seat, req.BuyIn)
	if err != nil {
		r.replyErr(sess, err)
		return
	}
	r.bindName(sess, req.PlayerName)
	r.log.Info("player joined", "player", p.Name, "seat", p.Seat, "stack", p.Stack)
	sess.Send(protocol.MustNew(protocol.TypeJoined, protocol.Joined{
		PlayerName: p.Name, Seat: p.Seat, Stack: p.Stack,
	}))
	r.broadcast(protocol.MustNew(protocol.TypePlayerJoined, protocol.PlayerJoined{
		PlayerName: p.Name, Seat: p.Seat, Stack: p.Stack,
	}))
	r.afterMutation()
	r.broadcastState()
}

func (r *Room) handleLeave(sess Session, _ *protocol.Message) {
	name := r.sessionName(sess)
	p := r.table.PlayerByName(name)
	if name == "" || p == nil {
		r.sendError(sess, poker.ErrNotSeated.Error())
		return
	}

	phase := r.table.Phase()
	live := phase.Betting() || phase == poker.PhaseRunTwice
	if live && (p.InHand() || p.TotalBet > 0) {
		// Mid-hand: fold now, free the seat after the award. A player
		// who already folded still has chips committed to the pot, so
		// the seat waits for the award too.
		r.pendingLeave[name] = true
		if p.InHand() {
			if phase == poker.PhaseRunTwice {
				_ = r.table.RunTwiceChoice(name, false)
			} else if err := r.table.ForceFold(name); err != nil {
				r.replyErr(sess, err)
				return
			}
		}
	} else {
		if _, err := r.table.RemovePlayer(name); err != nil {
			r.replyErr(sess, err)
			return
		}
		r.bindName(sess, "")
	}
	r.log.Info("player left", "player", name)
	r.broadcast(protocol.MustNew(protocol.TypePlayerLeft, protocol.PlayerLeft{PlayerName: name}))
	r.afterMutation()
	r.broadcastState()
}

func (r *Room) handleStartGame(sess Session, _ *protocol.Message) {
	if r.table.Phase() != poker.PhaseWaiting {
		// Between hands the next deal belongs to the timer, which runs
		// the pending-leave and busted-player cleanup first.
		r.sendError(sess, poker.ErrHandInProgress.Error())
		return
	}
	if err := r.table.StartHand(); err != nil {
		r.replyErr(sess, err)
		return
	}
	r.log.Info("hand started", "hand", r.table.HandNumber())
	r.broadcast(protocol.MustNew(protocol.TypeHandStarted, protocol.HandStarted{
		HandNumber: r.table.HandNumber(),
	}))
	r.afterMutation()
	r.broadcastState()
}

func (r *Room) handleAction(sess Session, msg *protocol.Message) {
	var req protocol.Action
	if err := msg.Decode(&req); err != nil {
		r.sendError(sess, err.Error())
		return
	}
	name := r.sessionName(sess)
	if name == "" || r.table.PlayerByName(name) == nil {
		r.sendError(sess, poker.ErrNotSeated.Error())
		return
	}
	if err := r.table.Apply(name, poker.ActionType(req.Action), req.Amount); err != nil {
		r.replyErr(sess, err)
		return
	}
	r.broadcast(protocol.MustNew(protocol.TypePlayerAction, protocol.PlayerAction{
		PlayerName: name, Action: req.Action, Amount: req.Amount,
	}))
	r.afterMutation()
	r.broadcastState()
}

func (r *Room) handleSitOut(sess Session, _ *protocol.Message) {
	name := r.sessionName(sess)
	if _, err := r.table.SitOutToggle(name); err != nil {
		r.replyErr(sess, err)
		return
	}
	r.afterMutation()
	r.broadcastState()
}

func (r *Room) handleChat(sess Session, msg *protocol.Message) {
	var req protocol.Chat
	if err := msg.Decode(&req); err != nil {
		r.sendError(sess, err.Error())
		return
	}
	name := r.sessionName(sess)
	if name == "" {
		r.sendError(sess, "spectators must pick a name to chat")
		return
	}
	r.broadcast(protocol.MustNew(protocol.TypeChat, protocol.ChatBroadcast{
		PlayerName: name, Message: req.Message,
	}))
}

func (r *Room) handleAddChips(sess Session, msg *protocol.Message) {
	var req protocol.AddChips
	if err := msg.Decode(&req); err != nil {
		r.sendError(sess, err.Error())
		return
	}
	name := r.sessionName(sess)
	if err := r.table.AddChips(name, req.Amount); err != nil {
		r.replyErr(sess, err)
		return
	}
	r.afterMutation()
	r.broadcastState()
}

func (r *Room) handleRunTwiceChoice(sess Session, msg *protocol.Message) {
	var req protocol.RunTwiceChoice
	if err := msg.Decode(&req); err != nil {
		r.sendError(sess, err.Error())
		return
	}
	name := r.sessionName(sess)
	if err := r.table.RunTwiceChoice(name, req.RunTwice); err != nil {
		r.replyErr(sess, err)
		return
	}
	r.broadcast(protocol.MustNew(protocol.TypeRunTwiceChosen, protocol.RunTwiceChosen{
		PlayerName: name,
		RunTwice:   req.RunTwice,
		WaitingFor: r.table.RunTwiceWaitingFor(),
	}))
	r.afterMutation()
	r.broadcastState()
}

// handleSignal forwards WebRTC envelopes to the named target without
// inspecting the payload beyond the target field.
func (r *Room) handleSignal(sess Session, msg *protocol.Message) {
	var sig protocol.Signal
	if err := msg.Decode(&sig); err != nil {
		r.sendError(sess, err.Error())
		return
	}
	target, ok := r.byName[sig.Target]
	if !ok {
		r.sendError(sess, fmt.Sprintf("no connection for %q", sig.Target))
		return
	}
	target.Send(msg)
}

func (r *Room) handleDisconnect(sess Session) {
	si, ok := r.sessions[sess]
	if !ok {
		return
	}
	delete(r.sessions, sess)
	if si.name == "" || r.byName[si.name] != sess {
		return
	}
	delete(r.byName, si.name)
	if r.table.PlayerByName(si.name) != nil {
		// Seat is retained; the player can reconnect by name.
		r.log.Info("player disconnected", "player", si.name)
		r.broadcast(protocol.MustNew(protocol.TypePlayerDisconnected, protocol.PlayerDisconnected{
			PlayerName: si.name,
		}))
	}
}

// afterMutation runs the shared post-mutation pipeline: invariant
// check, run-twice prompt, hand settlement announcement, persistence.
// Any mutation can land the table in waiting_run_twice (a leave-forced
// fold included), so the prompt lives here rather than in one handler.
func (r *Room) afterMutation() {
	if err := r.table.CheckInvariants(); err != nil {
		r.fatal(err)
		return
	}
	r.maybePromptRunTwice()
	if r.table.Phase() == poker.PhaseHandOver {
		r.announceHandEnd()
	}
	r.dirty = true
	r.persist()
}

func (r *Room) maybePromptRunTwice() {
	if r.table.Phase() != poker.PhaseRunTwice || r.promptedHand == r.table.HandNumber() {
		return
	}
	r.promptedHand = r.table.HandNumber()
	eligible := r.table.RunTwiceEligible()
	prompt := protocol.MustNew(protocol.TypeRunTwicePrompt, protocol.RunTwicePrompt{Eligible: eligible})
	for _, name := range eligible {
		if target, ok := r.byName[name]; ok {
			target.Send(prompt)
		}
	}
}

func (r *Room) announceHandEnd() {
	res := r.table.LastResult()
	if res == nil || res.HandNumber == r.announcedHand {
		return
	}
	r.announcedHand = res.HandNumber
	r.log.Info("hand ended", "hand", res.HandNumber, "pot", res.Pot, "winners", res.Winners)
	r.recordHand(res)
	r.broadcast(protocol.MustNew(protocol.TypeHandEnded, protocol.HandEnded{
		HandNumber:   res.HandNumber,
		Winners:      res.Winners,
		Pot:          res.Pot,
		Pots:         res.Pots,
		HandResults:  res.Results,
		PlayerStacks: res.Stacks,
		RunTwice:     res.RunTwice,
		FirstRun:     res.FirstRun,
		SecondRun:    res.SecondRun,
	}))
	r.scheduleNextHand()
}

func (r *Room) recordHand(res *poker.HandOutcome) {
	if r.store == nil {
		return
	}
	winner := map[string]bool{}
	for _, name := range res.Winners {
		winner[name] = true
	}
	winningHand := ""
	for _, pr := range res.Results {
		if winner[pr.PlayerName] {
			winningHand = pr.Description
			break
		}
	}
	rec := store.HandRecord{
		RoomID:      r.id,
		HandNumber:  res.HandNumber,
		PotSize:     res.Pot,
		Winners:     res.Winners,
		WinningHand: winningHand,
	}
	for _, a := range res.Actions {
		rec.Actions = append(rec.Actions, store.ActionRecord{
			PlayerName: a.PlayerName, Action: a.Action, Amount: a.Amount, Phase: a.Phase,
		})
	}
	for _, name := range res.Dealt {
		rec.Players = append(rec.Players, store.PlayerResult{
			Name:   name,
			Profit: res.Profits[name],
			Won:    winner[name],
		})
	}
	if _, err := r.store.RecordHand(rec, r.clock.Now()); err != nil {
		r.log.Error("record hand", "hand", res.HandNumber, "err", err)
	}
}

func (r *Room) scheduleNextHand() {
	if r.timerPending {
		return
	}
	r.timerPending = true
	r.clock.AfterFunc(r.handDelay, func() {
		select {
		case r.events <- handTimerEvent{}:
		case <-r.done:
		}
	})
}

// startNextHand runs the between-hands cleanup and deals the next hand
// if enough players remain.
func (r *Room) startNextHand() {
	for name := range r.pendingLeave {
		delete(r.pendingLeave, name)
		if r.table.PlayerByName(name) == nil {
			continue
		}
		if _, err := r.table.RemovePlayer(name); err != nil {
			r.log.Error("remove leaving player", "player", name, "err", err)
			continue
		}
		if sess, ok := r.byName[name]; ok {
			r.bindName(sess, "")
		}
	}
	for _, name := range r.table.RemoveBusted() {
		r.log.Info("player busted", "player", name)
		r.broadcast(protocol.MustNew(protocol.TypePlayerLeft, protocol.PlayerLeft{PlayerName: name}))
	}

	err := r.table.StartHand()
	switch {
	case err == nil:
		r.broadcast(protocol.MustNew(protocol.TypeHandStarted, protocol.HandStarted{
			HandNumber: r.table.HandNumber(),
		}))
	case errors.Is(err, poker.ErrNotEnoughPlayers):
		// Table drops back to waiting until someone starts it again.
	case errors.Is(err, poker.ErrHandInProgress):
		return
	default:
		r.fatal(err)
		return
	}
	r.afterMutation()
	r.broadcastState()
}

func (r *Room) broadcast(msg *protocol.Message) {
	for sess := range r.sessions {
		sess.Send(msg)
	}
}

func (r *Room) broadcastState() {
	for sess, si := range r.sessions {
		sess.Send(r.stateFor(si.name))
	}
}

func (r *Room) persistIfDirty() {
	if r.dirty {
		r.persist()
	}
}

func (r *Room) persist() {
	if r.store == nil {
		r.dirty = false
		return
	}
	state, err := r.table.MarshalSnapshot()
	if err == nil {
		err = r.store.SaveRoomState(r.id, state, r.clock.Now())
	}
	if err != nil {
		r.persistFails++
		r.log.Error("persist failed", "err", err, "consecutive", r.persistFails)
		if r.persistFails >= maxPersistFailures {
			r.log.Error("giving up on persistence, closing room")
			r.Stop(false)
		}
		return
	}
	r.persistFails = 0
	r.dirty = false
}
