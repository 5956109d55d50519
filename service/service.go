// Package service exposes the methods of a Go struct as WAMP procedures.
//
// A method is exported when it has one of the shapes
//
//	func (r *T) Name(args *A, reply *R) error
//	func (r *T) Name(ctx context.Context, args *A, reply *R) error
//
// and is registered as "<prefix>.<Name>". The invocation's kwargs, or its
// single positional argument, are decoded into *A; *R is returned as the
// single positional result.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"mini-wamp/client"
	"mini-wamp/message"
)

type methodType struct {
	method    reflect.Method
	withCtx   bool
	ArgType   reflect.Type
	ReplyType reflect.Type
}

type Service struct {
	name   string
	prefix string
	rcvr   reflect.Value
	typ    reflect.Type
	method map[string]*methodType
}

var (
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
)

// NewService scans rcvr for exported methods. An empty prefix uses the
// struct's type name.
func NewService(rcvr any, prefix string) (*Service, error) {
	typ := reflect.TypeOf(rcvr)
	if typ == nil || typ.Kind() != reflect.Ptr {
		return nil, fmt.Errorf("service: rcvr must be a pointer, got %T", rcvr)
	}
	if typ.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("service: rcvr must point to a struct, got %s", typ.Elem().Kind())
	}
	svc := &Service{
		name:   typ.Elem().Name(),
		prefix: prefix,
		rcvr:   reflect.ValueOf(rcvr),
		typ:    typ,
		method: make(map[string]*methodType),
	}
	if svc.prefix == "" {
		svc.prefix = svc.name
	}
	svc.registerMethods()
	if len(svc.method) == 0 {
		return nil, fmt.Errorf("service: %s has no exportable methods", svc.name)
	}
	return svc, nil
}

// registerMethods 扫描 struct 的导出方法，过滤出符合签名的
func (s *Service) registerMethods() {
	for i := 0; i < s.typ.NumMethod(); i++ {
		method := s.typ.Method(i)
		mt := method.Type
		if mt.NumOut() != 1 || mt.Out(0) != errorType {
			continue
		}
		first := 1
		withCtx := false
		switch mt.NumIn() {
		case 3:
		case 4:
			if mt.In(1) != contextType {
				continue
			}
			first, withCtx = 2, true
		default:
			continue
		}
		if mt.In(first).Kind() != reflect.Ptr || mt.In(first+1).Kind() != reflect.Ptr {
			continue
		}
		s.method[method.Name] = &methodType{
			method:    method,
			withCtx:   withCtx,
			ArgType:   mt.In(first).Elem(),
			ReplyType: mt.In(first + 1).Elem(),
		}
	}
}

func (s *Service) Name() string { return s.name }

// Procedures lists the procedure URIs in sorted order.
func (s *Service) Procedures() []string {
	uris := make([]string, 0, len(s.method))
	for name := range s.method {
		uris = append(uris, s.prefix+"."+name)
	}
	sort.Strings(uris)
	return uris
}

// Procedure returns the implementation bound to one method.
func (s *Service) Procedure(methodName string) (client.Procedure, bool) {
	mt, ok := s.method[methodName]
	if !ok {
		return nil, false
	}
	return func(ctx context.Context, inv *message.Invocation) (message.List, message.Dict, error) {
		return s.invoke(ctx, mt, inv)
	}, true
}

func (s *Service) invoke(ctx context.Context, mt *methodType, inv *message.Invocation) (message.List, message.Dict, error) {
	argv := reflect.New(mt.ArgType)
	replyv := reflect.New(mt.ReplyType)
	if err := decodeArgs(inv, argv.Interface()); err != nil {
		return nil, nil, message.NewError(inv, message.ErrInvalidArgument, message.List{err.Error()}, nil)
	}

	in := []reflect.Value{s.rcvr}
	if mt.withCtx {
		in = append(in, reflect.ValueOf(ctx))
	}
	in = append(in, argv, replyv)
	results := mt.method.Func.Call(in)
	if errv := results[0]; !errv.IsNil() {
		return nil, nil, errv.Interface().(error)
	}

	reply, err := roundTrip[any](replyv.Interface())
	if err != nil {
		return nil, nil, err
	}
	return message.List{reply}, nil, nil
}

var errAmbiguousArgs = errors.New("expected kwargs or exactly one positional argument")

func decodeArgs(inv *message.Invocation, dst any) error {
	var src any
	switch {
	case len(inv.Kwargs) > 0:
		src = inv.Kwargs
	case len(inv.Args) == 1:
		src = inv.Args[0]
	case len(inv.Args) == 0:
		return nil
	default:
		return errAmbiguousArgs
	}
	data, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

func roundTrip[T any](v any) (T, error) {
	var out T
	data, err := json.Marshal(v)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(data, &out)
	return out, err
}

// Serve registers every procedure on the session and returns the
// registration ids keyed by procedure URI. It stops at the first failure.
func (s *Service) Serve(ctx context.Context, sess *client.Session) (map[string]uint64, error) {
	ids := make(map[string]uint64, len(s.method))
	names := make([]string, 0, len(s.method))
	for name := range s.method {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		proc, _ := s.Procedure(name)
		uri := s.prefix + "." + name
		reg, err := sess.Register(ctx, uri, nil, proc)
		if err != nil {
			return ids, fmt.Errorf("service: register %s: %w", uri, err)
		}
		ids[uri] = reg.Registration
	}
	return ids, nil
}
