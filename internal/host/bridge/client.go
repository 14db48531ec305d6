package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"strings"
	"time"

	"mediasolver/internal/host"
)

// Dialer connects to the scripting bridge. It satisfies host.Dialer.
type Dialer struct {
	Network string
	Address string
	// Generation is "auto", "native" or "snake".
	Generation string
	// ClientName is reported to the bridge in the hello exchange.
	ClientName string
}

// Dial connects, checks the engine is live, and fixes the API generation for
// the lifetime of the returned session.
func (d Dialer) Dial(ctx context.Context) (host.Session, error) {
	return d.DialSession(ctx)
}

// DialSession is Dial returning the concrete session type.
func (d Dialer) DialSession(ctx context.Context) (*Session, error) {
	network := d.Network
	if network == "" {
		network = "tcp"
	}
	var nd net.Dialer
	conn, err := nd.DialContext(ctx, network, d.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: dial bridge %s: %v", host.ErrEngineUnavailable, d.Address, err)
	}
	client := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	s := &Session{client: client}

	var hello HelloReply
	if err := s.rpc(ServiceName+".Hello", HelloArgs{Client: d.ClientName}, &hello); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("%w: bridge hello: %v", host.ErrEngineUnavailable, err)
	}
	if !hello.Engine {
		_ = s.Close()
		return nil, fmt.Errorf("%w: bridge reports no scripting engine", host.ErrEngineUnavailable)
	}
	s.Product, s.Version = hello.Product, hello.Version

	gen, fixed, err := generationByName(d.Generation)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	if !fixed {
		var desc DescribeReply
		if err := s.rpc(ServiceName+".Describe", DescribeArgs{}, &desc); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("describe host root: %w", err)
		}
		if gen, err = detectGeneration(desc.Methods); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	s.gen = gen
	return s, nil
}

// Reachable reports whether something accepts connections at the bridge
// address within timeout. It does not open a session.
func Reachable(ctx context.Context, network, address string, timeout time.Duration) bool {
	if network == "" {
		network = "tcp"
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	var nd net.Dialer
	conn, err := nd.DialContext(ctx, network, address)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Session is one bridge connection bound to an API generation.
type Session struct {
	client  *rpc.Client
	gen     Generation
	Product string
	Version string
}

// Generation reports the API generation selected at dial time.
func (s *Session) Generation() Generation { return s.gen }

// Close releases the connection. Objects obtained from the session become unusable.
func (s *Session) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// ProjectManager implements host.Session.
func (s *Session) ProjectManager() (host.ProjectManager, error) {
	ref, ok, err := s.root().callRef(opGetProjectManager)
	if err != nil || !ok {
		return nil, err
	}
	return &projectManager{object{s: s, ref: ref}}, nil
}

func (s *Session) root() object { return object{s: s} }

func (s *Session) rpc(method string, args, reply any) error {
	err := s.client.Call(method, args, reply)
	if err == nil {
		return nil
	}
	var serverErr rpc.ServerError
	if errors.As(err, &serverErr) {
		msg := string(serverErr)
		lower := strings.ToLower(msg)
		switch {
		case strings.HasPrefix(lower, "no such method"):
			return fmt.Errorf("%w: %s", host.ErrNoMethod, msg)
		case strings.Contains(lower, "engine unavailable"):
			return fmt.Errorf("%w: %s", host.ErrEngineUnavailable, msg)
		}
		return errors.New(msg)
	}
	if errors.Is(err, rpc.ErrShutdown) {
		return fmt.Errorf("%w: %v", host.ErrEngineUnavailable, err)
	}
	return err
}

// object is a handle plus the session that issued it. The zero ref is the
// application root.
type object struct {
	s   *Session
	ref string
}

func (o object) invoke(method string, args ...any) (json.RawMessage, error) {
	if args == nil {
		args = []any{}
	}
	var reply InvokeReply
	if err := o.s.rpc(ServiceName+".Invoke", InvokeArgs{Target: o.ref, Method: method, Args: args}, &reply); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return reply.Value, nil
}

func (o object) call(operation op, args ...any) (json.RawMessage, error) {
	return o.invoke(o.s.gen.method(operation), args...)
}

func (o object) callRef(operation op, args ...any) (string, bool, error) {
	raw, err := o.call(operation, args...)
	if err != nil {
		return "", false, err
	}
	return decodeRef(raw)
}

func (o object) callRefs(operation op, args ...any) ([]string, error) {
	raw, err := o.call(operation, args...)
	if err != nil {
		return nil, err
	}
	return decodeRefs(raw)
}

func (o object) callBool(operation op, args ...any) (bool, error) {
	raw, err := o.call(operation, args...)
	if err != nil {
		return false, err
	}
	return decodeTruthy(raw), nil
}

func (o object) callString(operation op, args ...any) (string, error) {
	raw, err := o.call(operation, args...)
	if err != nil {
		return "", err
	}
	return decodeString(raw)
}

func (o object) callStrings(operation op, args ...any) ([]string, error) {
	raw, err := o.call(operation, args...)
	if err != nil {
		return nil, err
	}
	return decodeStringList(raw)
}
