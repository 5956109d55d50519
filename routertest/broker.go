package routertest

import (
	"sync"

	"mini-wamp/message"
)

type subscription struct {
	id    uint64
	topic string
	peers map[*Peer]struct{}
}

type registration struct {
	id        uint64
	procedure string
	callee    *Peer
}

// pendingCall is a Call forwarded to a callee as an Invocation.
type pendingCall struct {
	caller *Peer
	call   uint64
	callee *Peer
}

// realmState is the broker and dealer state shared by all peers.
type realmState struct {
	mu            sync.Mutex
	subscriptions map[string]*subscription
	registrations map[string]*registration
	byRegID       map[uint64]*registration
	invocations   map[uint64]*pendingCall
}

func newRealmState() *realmState {
	return &realmState{
		subscriptions: make(map[string]*subscription),
		registrations: make(map[string]*registration),
		byRegID:       make(map[uint64]*registration),
		invocations:   make(map[uint64]*pendingCall),
	}
}

// drop forgets everything a departed peer owned.
func (s *realmState) drop(p *Peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for topic, sub := range s.subscriptions {
		delete(sub.peers, p)
		if len(sub.peers) == 0 {
			delete(s.subscriptions, topic)
		}
	}
	for proc, reg := range s.registrations {
		if reg.callee == p {
			delete(s.registrations, proc)
			delete(s.byRegID, reg.id)
		}
	}
	for id, inv := range s.invocations {
		if inv.caller == p || inv.callee == p {
			delete(s.invocations, id)
			if inv.callee == p && inv.caller != p {
				go inv.caller.Send(&message.Error{Cause: message.TypeCall, RequestID: inv.call, URI: string(message.ErrCanceled)})
			}
		}
	}
}

// serve answers one client until it leaves or breaks the protocol.
func (r *Router) serve(p *Peer) {
	log := r.opts.logger
	established := false
	for {
		m, err := p.next()
		if err != nil {
			return
		}
		log.Debug().Stringer("type", m.Type()).Msg("routertest received")

		if !established {
			switch m := m.(type) {
			case *message.Hello:
				established = r.hello(p, m)
			case *message.Authenticate:
				if r.opts.ticket != "" && m.Signature == r.opts.ticket {
					established = true
					r.welcome(p)
				} else {
					_ = p.Send(message.NewAbort(message.ErrAuthorizationFailed))
					return
				}
			default:
				_ = p.Send(message.NewAbort(message.ErrProtocolViolation))
				return
			}
			continue
		}

		if done := r.handle(p, m); done {
			return
		}
	}
}

func (r *Router) hello(p *Peer, h *message.Hello) bool {
	if h.Realm != r.opts.realm {
		_ = p.Send(message.NewAbort(message.ErrNoSuchRealm))
		return false
	}
	if r.opts.ticket != "" {
		_ = p.Send(&message.Challenge{AuthMethod: "ticket", Details: message.Dict{}})
		return false
	}
	r.welcome(p)
	return true
}

func (r *Router) welcome(p *Peer) {
	_ = p.Send(&message.Welcome{
		Session: r.nextID(),
		Details: message.Dict{"roles": message.Dict{"broker": message.Dict{}, "dealer": message.Dict{}}},
	})
}

// handle reports whether the session is over.
func (r *Router) handle(p *Peer, m message.Message) bool {
	s := r.realm
	switch m := m.(type) {
	case *message.Goodbye:
		_ = p.Send(message.NewGoodbye(message.CloseGoodbyeAndOut))
		return true

	case *message.Subscribe:
		s.mu.Lock()
		sub, ok := s.subscriptions[m.Topic]
		if !ok {
			sub = &subscription{id: r.nextID(), topic: m.Topic, peers: make(map[*Peer]struct{})}
			s.subscriptions[m.Topic] = sub
		}
		sub.peers[p] = struct{}{}
		s.mu.Unlock()
		_ = p.Send(&message.Subscribed{RequestID: m.RequestID, Subscription: sub.id})

	case *message.Unsubscribe:
		s.mu.Lock()
		var found bool
		for topic, sub := range s.subscriptions {
			if sub.id != m.Subscription {
				continue
			}
			if _, found = sub.peers[p]; found {
				delete(sub.peers, p)
				if len(sub.peers) == 0 {
					delete(s.subscriptions, topic)
				}
			}
			break
		}
		s.mu.Unlock()
		if !found {
			_ = p.Send(message.NewError(m, message.ErrNoSuchSubscription, nil, nil))
			break
		}
		_ = p.Send(&message.Unsubscribed{RequestID: m.RequestID})

	case *message.Publish:
		publication := r.nextID()
		excludeMe := true
		if v, ok := m.Options["exclude_me"].(bool); ok {
			excludeMe = v
		}
		s.mu.Lock()
		var targets []*Peer
		var subID uint64
		if sub, ok := s.subscriptions[m.Topic]; ok {
			subID = sub.id
			for peer := range sub.peers {
				if peer != p || !excludeMe {
					targets = append(targets, peer)
				}
			}
		}
		s.mu.Unlock()
		for _, peer := range targets {
			_ = peer.Send(&message.Event{Subscription: subID, Publication: publication, Details: message.Dict{}, Args: m.Args, Kwargs: m.Kwargs})
		}
		if m.Acknowledged() {
			_ = p.Send(&message.Published{RequestID: m.RequestID, Publication: publication})
		}

	case *message.Register:
		s.mu.Lock()
		_, exists := s.registrations[m.Procedure]
		var reg *registration
		if !exists {
			reg = &registration{id: r.nextID(), procedure: m.Procedure, callee: p}
			s.registrations[m.Procedure] = reg
			s.byRegID[reg.id] = reg
		}
		s.mu.Unlock()
		if exists {
			_ = p.Send(message.NewError(m, message.ErrProcedureExists, nil, nil))
			break
		}
		_ = p.Send(&message.Registered{RequestID: m.RequestID, Registration: reg.id})

	case *message.Unregister:
		s.mu.Lock()
		reg, ok := s.byRegID[m.Registration]
		if ok && reg.callee == p {
			delete(s.byRegID, reg.id)
			delete(s.registrations, reg.procedure)
		}
		s.mu.Unlock()
		if !ok || reg.callee != p {
			_ = p.Send(message.NewError(m, message.ErrNoSuchRegistration, nil, nil))
			break
		}
		_ = p.Send(&message.Unregistered{RequestID: m.RequestID})

	case *message.Call:
		s.mu.Lock()
		reg, ok := s.registrations[m.Procedure]
		var invID uint64
		if ok {
			invID = r.nextID()
			s.invocations[invID] = &pendingCall{caller: p, call: m.RequestID, callee: reg.callee}
		}
		s.mu.Unlock()
		if !ok {
			_ = p.Send(message.NewError(m, message.ErrNoSuchProcedure, nil, nil))
			break
		}
		details := message.Dict{}
		if v, _ := m.Options["receive_progress"].(bool); v {
			details["receive_progress"] = true
		}
		_ = reg.callee.Send(&message.Invocation{RequestID: invID, Registration: reg.id, Details: details, Args: m.Args, Kwargs: m.Kwargs})

	case *message.Yield:
		progress, _ := m.Options["progress"].(bool)
		s.mu.Lock()
		inv, ok := s.invocations[m.RequestID]
		if ok && !progress {
			delete(s.invocations, m.RequestID)
		}
		s.mu.Unlock()
		if !ok {
			break
		}
		details := message.Dict{}
		if progress {
			details["progress"] = true
		}
		_ = inv.caller.Send(&message.Result{RequestID: inv.call, Details: details, Args: m.Args, Kwargs: m.Kwargs})

	case *message.Error:
		if m.Cause != message.TypeInvocation {
			break
		}
		s.mu.Lock()
		inv, ok := s.invocations[m.RequestID]
		delete(s.invocations, m.RequestID)
		s.mu.Unlock()
		if ok {
			_ = inv.caller.Send(&message.Error{Cause: message.TypeCall, RequestID: inv.call, Details: message.Dict{}, URI: m.URI, Args: m.Args, Kwargs: m.Kwargs})
		}

	case *message.Cancel:
		s.mu.Lock()
		var invID uint64
		var inv *pendingCall
		for id, pc := range s.invocations {
			if pc.caller == p && pc.call == m.RequestID {
				invID, inv = id, pc
				delete(s.invocations, id)
				break
			}
		}
		s.mu.Unlock()
		if inv == nil {
			break
		}
		_ = inv.callee.Send(&message.Interrupt{RequestID: invID, Options: m.Options})
		_ = p.Send(&message.Error{Cause: message.TypeCall, RequestID: m.RequestID, Details: message.Dict{}, URI: string(message.ErrCanceled)})

	default:
		_ = p.Send(message.NewAbort(message.ErrProtocolViolation))
		return true
	}
	return false
}
