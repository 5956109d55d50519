package message

// Publish asks the broker to dispatch an event to a topic. The broker only
// answers with Published when options carry acknowledge=true.
type Publish struct {
	RequestID uint64
	Options   Dict
	Topic     string
	Args      List
	Kwargs    Dict
}

func (*Publish) Type() Type        { return TypePublish }
func (m *Publish) Request() uint64 { return m.RequestID }

func (m *Publish) Encode() List {
	seq := List{uint64(TypePublish), m.RequestID, dictOrEmpty(m.Options), m.Topic}
	return appendPayload(seq, m.Args, m.Kwargs)
}

// Acknowledged reports whether the broker will reply with Published or Error.
func (m *Publish) Acknowledged() bool {
	ack, _ := m.Options["acknowledge"].(bool)
	return ack
}

func decodePublish(seq List) (Message, error) {
	r, err := readerFor(TypePublish, seq)
	if err != nil {
		return nil, err
	}
	m := &Publish{RequestID: r.id("request_id"), Options: r.dict("options"), Topic: r.str("topic")}
	m.Args, m.Kwargs = r.payload()
	return m, r.done()
}

// Published acknowledges a Publish.
type Published struct {
	RequestID   uint64
	Publication uint64
}

func (*Published) Type() Type        { return TypePublished }
func (m *Published) Request() uint64 { return m.RequestID }

func (m *Published) Encode() List {
	return List{uint64(TypePublished), m.RequestID, m.Publication}
}

func decodePublished(seq List) (Message, error) {
	r, err := readerFor(TypePublished, seq)
	if err != nil {
		return nil, err
	}
	m := &Published{RequestID: r.id("request_id"), Publication: r.id("publication")}
	return m, r.done()
}

// Subscribe asks the broker for events on a topic.
type Subscribe struct {
	RequestID uint64
	Options   Dict
	Topic     string
}

func (*Subscribe) Type() Type        { return TypeSubscribe }
func (m *Subscribe) Request() uint64 { return m.RequestID }

func (m *Subscribe) Encode() List {
	return List{uint64(TypeSubscribe), m.RequestID, dictOrEmpty(m.Options), m.Topic}
}

func decodeSubscribe(seq List) (Message, error) {
	r, err := readerFor(TypeSubscribe, seq)
	if err != nil {
		return nil, err
	}
	m := &Subscribe{RequestID: r.id("request_id"), Options: r.dict("options"), Topic: r.str("topic")}
	return m, r.done()
}

// Subscribed acknowledges a Subscribe and assigns the subscription id that
// later Event messages are keyed by.
type Subscribed struct {
	RequestID    uint64
	Subscription uint64
}

func (*Subscribed) Type() Type        { return TypeSubscribed }
func (m *Subscribed) Request() uint64 { return m.RequestID }

func (m *Subscribed) Encode() List {
	return List{uint64(TypeSubscribed), m.RequestID, m.Subscription}
}

func decodeSubscribed(seq List) (Message, error) {
	r, err := readerFor(TypeSubscribed, seq)
	if err != nil {
		return nil, err
	}
	m := &Subscribed{RequestID: r.id("request_id"), Subscription: r.id("subscription")}
	return m, r.done()
}

// Unsubscribe ends a subscription.
type Unsubscribe struct {
	RequestID    uint64
	Subscription uint64
}

func (*Unsubscribe) Type() Type        { return TypeUnsubscribe }
func (m *Unsubscribe) Request() uint64 { return m.RequestID }

func (m *Unsubscribe) Encode() List {
	return List{uint64(TypeUnsubscribe), m.RequestID, m.Subscription}
}

func decodeUnsubscribe(seq List) (Message, error) {
	r, err := readerFor(TypeUnsubscribe, seq)
	if err != nil {
		return nil, err
	}
	m := &Unsubscribe{RequestID: r.id("request_id"), Subscription: r.id("subscription")}
	return m, r.done()
}

// Unsubscribed acknowledges an Unsubscribe.
type Unsubscribed struct {
	RequestID uint64
}

func (*Unsubscribed) Type() Type        { return TypeUnsubscribed }
func (m *Unsubscribed) Request() uint64 { return m.RequestID }

func (m *Unsubscribed) Encode() List {
	return List{uint64(TypeUnsubscribed), m.RequestID}
}

func decodeUnsubscribed(seq List) (Message, error) {
	r, err := readerFor(TypeUnsubscribed, seq)
	if err != nil {
		return nil, err
	}
	m := &Unsubscribed{RequestID: r.id("request_id")}
	return m, r.done()
}

// Event delivers a publication to a subscriber.
type Event struct {
	Subscription uint64
	Publication  uint64
	Details      Dict
	Args         List
	Kwargs       Dict
}

func (*Event) Type() Type { return TypeEvent }

func (m *Event) Encode() List {
	seq := List{uint64(TypeEvent), m.Subscription, m.Publication, dictOrEmpty(m.Details)}
	return appendPayload(seq, m.Args, m.Kwargs)
}

func decodeEvent(seq List) (Message, error) {
	r, err := readerFor(TypeEvent, seq)
	if err != nil {
		return nil, err
	}
	m := &Event{Subscription: r.id("subscription"), Publication: r.id("publication"), Details: r.dict("details")}
	m.Args, m.Kwargs = r.payload()
	return m, r.done()
}
