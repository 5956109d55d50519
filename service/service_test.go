package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mini-wamp/client"
	"mini-wamp/codec"
	"mini-wamp/message"
	"mini-wamp/transport"
)

type Args struct {
	A, B int
}

type Reply struct {
	Result int
}

type Arith struct{}

func (a *Arith) Add(args *Args, reply *Reply) error {
	reply.Result = args.A + args.B
	return nil
}

func (a *Arith) Div(ctx context.Context, args *Args, reply *Reply) error {
	if args.B == 0 {
		return errors.New("divide by zero")
	}
	reply.Result = args.A / args.B
	return nil
}

// Not exported as a procedure: wrong shape.
func (a *Arith) Reset() {}

func TestNewServiceScansMethods(t *testing.T) {
	svc, err := NewService(&Arith{}, "com.arith")
	require.NoError(t, err)
	assert.Equal(t, "Arith", svc.Name())
	assert.Equal(t, []string{"com.arith.Add", "com.arith.Div"}, svc.Procedures())

	svc, err = NewService(&Arith{}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Arith.Add", "Arith.Div"}, svc.Procedures())
}

func TestNewServiceRejects(t *testing.T) {
	_, err := NewService(Arith{}, "")
	assert.ErrorContains(t, err, "pointer")

	n := 3
	_, err = NewService(&n, "")
	assert.ErrorContains(t, err, "struct")

	type empty struct{}
	_, err = NewService(&empty{}, "")
	assert.ErrorContains(t, err, "no exportable methods")
}

func TestProcedureArguments(t *testing.T) {
	svc, err := NewService(&Arith{}, "com.arith")
	require.NoError(t, err)
	add, ok := svc.Procedure("Add")
	require.True(t, ok)
	_, ok = svc.Procedure("Reset")
	assert.False(t, ok)

	tests := []struct {
		name string
		inv  *message.Invocation
		want int
	}{
		{"kwargs", &message.Invocation{Kwargs: message.Dict{"A": json.Number("1"), "B": json.Number("2")}}, 3},
		{"positional object", &message.Invocation{Args: message.List{message.Dict{"A": 10, "B": 20}}}, 30},
		{"no arguments", &message.Invocation{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, kwargs, err := add(context.Background(), tt.inv)
			require.NoError(t, err)
			assert.Nil(t, kwargs)
			require.Len(t, args, 1)
			assert.Equal(t, map[string]any{"Result": float64(tt.want)}, args[0])
		})
	}
}

func TestProcedureErrors(t *testing.T) {
	svc, err := NewService(&Arith{}, "com.arith")
	require.NoError(t, err)

	add, _ := svc.Procedure("Add")
	_, _, err = add(context.Background(), &message.Invocation{RequestID: 4, Args: message.List{1, 2}})
	var wampErr *message.Error
	require.ErrorAs(t, err, &wampErr)
	assert.Equal(t, string(message.ErrInvalidArgument), wampErr.URI)
	assert.Equal(t, message.TypeInvocation, wampErr.Cause)
	assert.Equal(t, uint64(4), wampErr.RequestID)

	_, _, err = add(context.Background(), &message.Invocation{Args: message.List{"nope"}})
	require.ErrorAs(t, err, &wampErr)

	div, _ := svc.Procedure("Div")
	_, _, err = div(context.Background(), &message.Invocation{Kwargs: message.Dict{"A": 1, "B": 0}})
	assert.EqualError(t, err, "divide by zero")
}

func TestServeRegistersAndAnswers(t *testing.T) {
	a, b := transport.Pipe()
	defer a.Close()
	sess := client.New(a)
	errc := make(chan error, 1)
	go func() { errc <- sess.Run(context.Background()) }()

	svc, err := NewService(&Arith{}, "com.arith")
	require.NoError(t, err)

	jc := &codec.JSONCodec{}
	read := func() message.Message {
		f, err := b.ReadFrame()
		require.NoError(t, err)
		m, err := jc.Decode(f.Data)
		require.NoError(t, err)
		return m
	}

	// A scripted router that accepts every Register.
	regs := make(chan *message.Register, 2)
	go func() {
		for i := 0; i < 2; i++ {
			m := read()
			reg := m.(*message.Register)
			regs <- reg
			b.WriteText([]byte(fmt.Sprintf(`[65,%d,%d]`, reg.RequestID, 100+i)))
		}
	}()

	ids, err := svc.Serve(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, map[string]uint64{"com.arith.Add": 100, "com.arith.Div": 101}, ids)
	assert.Equal(t, "com.arith.Add", (<-regs).Procedure)
	assert.Equal(t, "com.arith.Div", (<-regs).Procedure)

	require.NoError(t, b.WriteText([]byte(`[68,1,101,{},[],{"A":9,"B":3}]`)))
	y, ok := read().(*message.Yield)
	require.True(t, ok)
	assert.Equal(t, uint64(1), y.RequestID)
	assert.Equal(t, message.List{map[string]any{"Result": json.Number("3")}}, y.Args)

	require.NoError(t, b.WriteText([]byte(`[68,2,101,{},[],{"A":9,"B":0}]`)))
	e, ok := read().(*message.Error)
	require.True(t, ok)
	assert.Equal(t, string(message.ErrRuntime), e.URI)
	assert.Equal(t, message.List{"divide by zero"}, e.Args)

	b.Close()
	select {
	case <-errc:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop")
	}
}
