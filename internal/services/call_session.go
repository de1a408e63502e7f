package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/damione1/paginated-grid/internal/config"
	"github.com/damione1/paginated-grid/internal/models"
)

var (
	ErrSessionClosed       = errors.New("call session closed")
	ErrLocalParticipant    = errors.New("local participant has no receive layer")
	ErrAutoLayersEnabled   = errors.New("manual layers are disabled while auto layers are on")
	ErrInvalidLayer        = errors.New("layer must be 0, 1 or 2")
	ErrParticipantNotFound = errors.New("participant not found")
)

// CallSessionOptions configures one call session. Zero values fall back to
// the package defaults.
type CallSessionOptions struct {
	CallID             string
	Grid               GridOptions
	AutoLayers         bool
	Debounce           time.Duration
	FrameInterval      time.Duration
	RecentSpeakerCount int
	Dimensions         models.GridDimensions
	Now                func() time.Time
	Metrics            *Metrics
	Publisher          SnapshotPublisher
}

// DefaultCallSessionOptions builds options from the grid configuration.
func DefaultCallSessionOptions(callID string, grid config.GridConfig) CallSessionOptions {
	return CallSessionOptions{
		CallID: callID,
		Grid: GridOptions{
			MaxTilesPerPage: grid.MaxTilesPerPage,
			AspectRatio:     grid.AspectRatio,
		},
		AutoLayers:         grid.AutoLayers,
		Debounce:           grid.Debounce(),
		FrameInterval:      config.FrameInterval,
		RecentSpeakerCount: grid.RecentSpeakerCount,
		Dimensions:         models.GridDimensions{Width: 1, Height: 1},
	}
}

type sessionRequest struct {
	apply func(ctx context.Context) error
	reply chan error
}

// CallSession owns the participant store of one call. Every transition, page
// change, resize and outbound command runs on the goroutine executing Run;
// other goroutines talk to it through channels and receive copies.
type CallSession struct {
	callID  string
	grid    GridOptions
	media   MediaSession
	metrics *Metrics
	pub     SnapshotPublisher

	store       *ParticipantStore
	coordinator *ActiveSpeakerCoordinator
	tracks      *TrackTable
	subs        *SubscriptionSync
	debouncer   *Debouncer
	resizer     *FrameCoalescer[models.GridDimensions]

	events   chan *models.MediaEvent
	requests chan *sessionRequest
	resized  chan models.GridDimensions
	flushes  chan uint64

	done      chan struct{}
	closeOnce sync.Once

	// Loop-owned state
	dims           models.GridDimensions
	page           int
	autoLayers     bool
	layout         models.GridLayout
	visibleIDs     []string
	plan           models.SubscriptionPlan
	scheduled      *models.SubscriptionPlan
	sentLayers     models.ReceiveSettingsMap
	localSessionID string
}

// NewCallSession creates a session; call Run to start processing.
func NewCallSession(opts CallSessionOptions, media MediaSession) *CallSession {
	if opts.Grid.MaxTilesPerPage == 0 && opts.Grid.AspectRatio == 0 {
		opts.Grid = DefaultGridOptions()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = config.SubscriptionDebounce
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = config.FrameInterval
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	if opts.Publisher == nil {
		opts.Publisher = NoopPublisher{}
	}

	store := NewParticipantStore(opts.Now)
	s := &CallSession{
		callID:      opts.CallID,
		grid:        opts.Grid,
		media:       media,
		metrics:     opts.Metrics,
		pub:         opts.Publisher,
		store:       store,
		coordinator: NewActiveSpeakerCoordinator(store),
		tracks:      NewTrackTable(),
		subs:        NewSubscriptionSync(opts.RecentSpeakerCount),
		debouncer:   NewDebouncer(opts.Debounce),
		events:      make(chan *models.MediaEvent, config.SessionEventBufferSize),
		requests:    make(chan *sessionRequest, config.SessionControlBuffer),
		resized:     make(chan models.GridDimensions, 1),
		flushes:     make(chan uint64, 1),
		done:        make(chan struct{}),
		dims:        opts.Dimensions,
		page:        1,
		autoLayers:  opts.AutoLayers,
	}
	s.resizer = NewFrameCoalescer(opts.FrameInterval, s.deliverResize)
	return s
}

func (s *CallSession) CallID() string {
	return s.callID
}

// Done is closed once the session stops.
func (s *CallSession) Done() <-chan struct{} {
	return s.done
}

// Run processes events until ctx is cancelled, Close is called or a fatal
// transition error occurs, which is returned.
func (s *CallSession) Run(ctx context.Context) error {
	defer s.Close()

	s.metrics.IncrementSessions()
	defer s.metrics.DecrementSessions()

	log.Printf("✓ Call session started: call=%s", s.callID)
	defer log.Printf("✓ Call session stopped: call=%s", s.callID)

	s.recompute(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-s.done:
			return nil

		case event := <-s.events:
			if err := s.handleEvent(ctx, event); err != nil {
				log.Printf("❌ Fatal transition error (call=%s): %v", s.callID, err)
				return err
			}

		case req := <-s.requests:
			req.reply <- req.apply(ctx)

		case dims := <-s.resized:
			if dims != s.dims {
				s.dims = dims
				s.recompute(ctx)
			}

		case gen := <-s.flushes:
			if s.debouncer.Current(gen) {
				s.flushSubscriptions(ctx)
			}
		}
	}
}

// Close stops the session and cancels pending timers. Idempotent.
func (s *CallSession) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.debouncer.Cancel()
		s.resizer.Stop()
	})
}

// Push queues an inbound media event. Events are applied in push order.
func (s *CallSession) Push(ctx context.Context, event *models.MediaEvent) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	select {
	case s.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrSessionClosed
	}
}

// Resize records new container dimensions. Bursts are coalesced to one
// layout recomputation per frame.
func (s *CallSession) Resize(width, height float64) {
	s.resizer.Submit(models.GridDimensions{Width: width, Height: height})
}

func (s *CallSession) deliverResize(dims models.GridDimensions) {
	// Keep only the newest dimensions if the loop has not consumed the last frame.
	for {
		select {
		case s.resized <- dims:
			return
		case <-s.done:
			return
		default:
		}
		select {
		case <-s.resized:
		default:
		}
	}
}

// SetPage moves to page, clamped into [1, pages].
func (s *CallSession) SetPage(ctx context.Context, page int) error {
	return s.do(ctx, func(ctx context.Context) error {
		s.changePage(ctx, page)
		return nil
	})
}

// NextPage advances one page; a no-op on the last page.
func (s *CallSession) NextPage(ctx context.Context) error {
	return s.do(ctx, func(ctx context.Context) error {
		if s.page < s.layout.Pages {
			s.changePage(ctx, s.page+1)
		}
		return nil
	})
}

// PrevPage goes back one page; a no-op on the first page.
func (s *CallSession) PrevPage(ctx context.Context) error {
	return s.do(ctx, func(ctx context.Context) error {
		if s.page > 1 {
			s.changePage(ctx, s.page-1)
		}
		return nil
	})
}

// SetAutoLayers toggles automatic receive layers. Turning it on re-applies
// the recommendation for the visible tiles.
func (s *CallSession) SetAutoLayers(ctx context.Context, auto bool) error {
	return s.do(ctx, func(ctx context.Context) error {
		if s.autoLayers == auto {
			return nil
		}
		s.autoLayers = auto
		s.sentLayers = nil
		log.Printf("🎚️  Auto layers %v (call=%s)", auto, s.callID)
		s.applyAutoLayers(ctx)
		return nil
	})
}

// SetParticipantLayer sends a manual layer override for one remote
// participant. Only allowed while auto layers are off.
func (s *CallSession) SetParticipantLayer(ctx context.Context, id string, layer int) error {
	return s.do(ctx, func(ctx context.Context) error {
		if id == models.LocalParticipantID {
			return ErrLocalParticipant
		}
		if s.autoLayers {
			return ErrAutoLayersEnabled
		}
		if layer < config.LayerLow || layer > config.LayerHigh {
			return ErrInvalidLayer
		}
		if _, ok := s.store.Get(id); !ok {
			return fmt.Errorf("%w: %s", ErrParticipantNotFound, id)
		}

		log.Printf("🎚️  Updating receive settings for participant %s (call=%s, layer=%d)", id, s.callID, layer)
		return s.sendReceiveSettings(ctx, models.ReceiveSettingsMap{
			id: {Video: models.VideoReceiveSettings{Layer: layer}},
		})
	})
}

// Snapshot returns a consistent copy of the session state.
func (s *CallSession) Snapshot(ctx context.Context) (*models.CallSnapshot, error) {
	var snap *models.CallSnapshot
	err := s.do(ctx, func(context.Context) error {
		snap = s.buildSnapshot()
		return nil
	})
	return snap, err
}

func (s *CallSession) do(ctx context.Context, fn func(ctx context.Context) error) error {
	req := &sessionRequest{apply: fn, reply: make(chan error, 1)}

	select {
	case s.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrSessionClosed
	}

	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrSessionClosed
	}
}

func (s *CallSession) handleEvent(ctx context.Context, event *models.MediaEvent) error {
	if event == nil {
		s.metrics.IncrementEventsDropped()
		return nil
	}
	s.metrics.IncrementEventsReceived()
	s.tracks.Apply(event)

	var action Action
	switch event.Action {
	case models.EventParticipantJoined, models.EventParticipantUpdated:
		if event.Participant == nil {
			s.metrics.IncrementEventsDropped()
			return nil
		}
		s.observeParticipant(event.Participant)
		action = Action{Type: ActionParticipantUpdated, Participant: event.Participant}
		if event.Action == models.EventParticipantJoined {
			action.Type = ActionParticipantJoined
		}

	case models.EventParticipantLeft:
		if event.Participant == nil {
			s.metrics.IncrementEventsDropped()
			return nil
		}
		id := event.Participant.ParticipantID()
		s.subs.Forget(id)
		action = Action{Type: ActionParticipantLeft, ID: id}

	case models.EventActiveSpeakerChange:
		var peerID string
		if event.ActiveSpeaker != nil {
			peerID = event.ActiveSpeaker.PeerID
		}
		if peerID != "" && (peerID == models.LocalParticipantID || peerID == s.localSessionID) {
			return nil
		}
		action = Action{Type: ActionActiveSpeaker, ID: peerID}

	case models.EventReceiveSettingsUpdated:
		action = Action{Type: ActionUpdateLayer, ReceiveSettings: event.ReceiveSettings}

	case models.EventTrackStarted, models.EventTrackStopped:
		return nil

	default:
		log.Printf("⚠️  Ignoring unknown media event %q (call=%s)", event.Action, s.callID)
		s.metrics.IncrementEventsDropped()
		return nil
	}

	changed, err := s.store.Dispatch(action)
	if err != nil {
		return err
	}
	if changed {
		s.metrics.IncrementTransitions()
		s.recompute(ctx)
	}
	return nil
}

func (s *CallSession) observeParticipant(d *models.ParticipantDescriptor) {
	if d.Local {
		s.localSessionID = d.SessionID
		return
	}
	if d.Tracks.Video != nil && d.Tracks.Video.Subscribed != "" {
		s.subs.Observe(d.ParticipantID(), d.Tracks.Video.Subscribed)
	}
}

func (s *CallSession) changePage(ctx context.Context, page int) {
	page = min(max(page, 1), s.layout.Pages)
	if page == s.page {
		return
	}
	s.page = page
	s.recompute(ctx)
}

// derive recomputes layout and visible tiles from the current store state.
func (s *CallSession) derive() ([]models.Participant, []models.Participant) {
	participants := s.store.Snapshot().Participants
	s.layout = ComputeGridLayout(s.dims, len(participants), s.page, s.grid)
	s.page = s.layout.Page
	return participants, VisibleParticipants(participants, s.page, s.layout.PageSize)
}

func (s *CallSession) recompute(ctx context.Context) {
	participants, visible := s.derive()

	if _, swapped := s.coordinator.HandleActiveSpeaker(s.store.ActiveSpeakerID(), s.page, visible); swapped {
		s.metrics.IncrementSpeakerSwaps()
		participants, visible = s.derive()
	}

	s.visibleIDs = make([]string, 0, len(visible))
	for _, p := range visible {
		s.visibleIDs = append(s.visibleIDs, p.ID)
	}
	s.plan = PlanSubscriptions(participants, s.page, s.layout.PageSize)

	s.scheduleSubscriptions(participants)
	s.applyAutoLayers(ctx)
}

// scheduleSubscriptions re-arms the debounce whenever the candidate sets
// change, or arms it when the media session has drifted from the plan.
func (s *CallSession) scheduleSubscriptions(participants []models.Participant) {
	if s.scheduled != nil && s.scheduled.SameCandidates(s.plan) {
		if s.debouncer.Pending() || len(s.subs.Diff(s.plan, participants)) == 0 {
			return
		}
	}
	plan := s.plan
	s.scheduled = &plan

	s.debouncer.Trigger(func(gen uint64) {
		select {
		case s.flushes <- gen:
		case <-s.done:
		}
	})
}

func (s *CallSession) flushSubscriptions(ctx context.Context) {
	participants := s.store.Snapshot().Participants
	updates := s.subs.Diff(s.plan, participants)
	if len(updates) == 0 {
		return
	}

	cmdCtx, cancel := context.WithTimeout(ctx, config.WriteTimeout)
	defer cancel()

	if err := s.media.UpdateParticipants(cmdCtx, updates); err != nil {
		log.Printf("❌ Subscription update failed (call=%s, participants=%d): %v", s.callID, len(updates), err)
		s.metrics.IncrementCommandErrors()
		// Retry on the next recompute.
		s.scheduled = nil
		return
	}
	s.subs.Commit(updates)
	s.metrics.IncrementSubscriptionCommands()

	for id, u := range updates {
		log.Printf("📺 Participant %s cam subscription: %s (call=%s)", id, u.SetSubscribedTracks.Video, s.callID)
	}

	pubCtx, pubCancel := context.WithTimeout(ctx, config.WriteTimeout)
	defer pubCancel()
	if err := s.pub.Publish(pubCtx, s.buildSnapshot()); err != nil {
		log.Printf("⚠️  Snapshot publish failed (call=%s): %v", s.callID, err)
	}
}

func (s *CallSession) applyAutoLayers(ctx context.Context) {
	if !s.autoLayers {
		return
	}

	desired := make(models.ReceiveSettingsMap, len(s.plan.Layers))
	for id, layer := range s.plan.Layers {
		desired[id] = models.ReceiveSettings{Video: models.VideoReceiveSettings{Layer: layer}}
	}
	if len(desired) == 0 || sameReceiveSettings(desired, s.sentLayers) {
		return
	}

	if err := s.sendReceiveSettings(ctx, desired); err != nil {
		return
	}
	s.sentLayers = desired
}

func (s *CallSession) sendReceiveSettings(ctx context.Context, settings models.ReceiveSettingsMap) error {
	cmdCtx, cancel := context.WithTimeout(ctx, config.WriteTimeout)
	defer cancel()

	if err := s.media.UpdateReceiveSettings(cmdCtx, settings); err != nil {
		log.Printf("❌ Receive settings update failed (call=%s): %v", s.callID, err)
		s.metrics.IncrementCommandErrors()
		return err
	}
	s.metrics.IncrementLayerCommands()
	return nil
}

func (s *CallSession) buildSnapshot() *models.CallSnapshot {
	participants := s.store.Snapshot().Participants
	rows := make([]models.ParticipantStatus, 0, len(participants))
	for _, p := range participants {
		row := models.ParticipantStatus{Participant: p}
		track, reported := s.tracks.Video(p.ID)
		switch {
		case p.IsLocal:
			row.Subscription = models.StatusLocal
		case reported && track.Subscribed != "":
			row.Subscription = string(track.Subscribed)
		default:
			row.Subscription = string(s.subs.Current(p.ID))
		}
		row.Playing = reported && track.IsPlayable()
		rows = append(rows, row)
	}

	visible := make([]string, len(s.visibleIDs))
	copy(visible, s.visibleIDs)

	return &models.CallSnapshot{
		CallID:          s.callID,
		Version:         s.store.Version(),
		Dimensions:      s.dims,
		Layout:          s.layout,
		ActiveSpeakerID: s.store.ActiveSpeakerID(),
		VisibleIDs:      visible,
		Plan:            clonePlan(s.plan),
		Participants:    rows,
		Config: models.CallConfig{
			MaxTilesPerPage:    s.grid.MaxTilesPerPage,
			AspectRatio:        s.grid.AspectRatio,
			AutoLayers:         s.autoLayers,
			RecentSpeakerCount: s.subs.RecentSpeakerCount(),
		},
	}
}

func clonePlan(p models.SubscriptionPlan) models.SubscriptionPlan {
	out := models.SubscriptionPlan{
		Subscribed: append([]string{}, p.Subscribed...),
		Staged:     append([]string{}, p.Staged...),
		Layers:     make(map[string]int, len(p.Layers)),
	}
	for id, l := range p.Layers {
		out.Layers[id] = l
	}
	return out
}

func sameReceiveSettings(a, b models.ReceiveSettingsMap) bool {
	if len(a) != len(b) {
		return false
	}
	for id, s := range a {
		if o, ok := b[id]; !ok || o != s {
			return false
		}
	}
	return true
}
