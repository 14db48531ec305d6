package bridge

import "encoding/json"

// ServiceName is the RPC service the bridge registers.
const ServiceName = "Host"

// Ref is an object handle issued by the bridge.
type Ref struct {
	ID string `json:"$ref"`
}

// HelloArgs opens a session.
type HelloArgs struct {
	Client string `json:"client"`
}

// HelloReply reports whether the scripting engine behind the bridge is live.
type HelloReply struct {
	Product string `json:"product"`
	Version string `json:"version"`
	Engine  bool   `json:"engine"`
}

// DescribeArgs asks for the callable methods of an object. An empty target
// is the application root.
type DescribeArgs struct {
	Target string `json:"target"`
}

// DescribeReply lists callable method names.
type DescribeReply struct {
	Methods []string `json:"methods"`
}

// InvokeArgs calls Method on Target with positional Args.
type InvokeArgs struct {
	Target string `json:"target"`
	Method string `json:"method"`
	Args   []any  `json:"args"`
}

// InvokeReply carries the JSON encoded return value.
type InvokeReply struct {
	Value json.RawMessage `json:"value"`
}

// clipInfo is the per-clip record accepted by the lower-level timeline
// creation call.
type clipInfo struct {
	MediaPoolItem Ref `json:"mediaPoolItem"`
}
