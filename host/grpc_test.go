package host_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"goa.design/bridge/engine"
	"goa.design/bridge/host"
)

func TestGRPCServiceResolvesSelection(t *testing.T) {
	instrs := mustCompile(t, `version 1.4
bridge Query.answer {
  with input as i
  with output as o
  o.value <- i.n
}
`)
	e := engine.BuildEngine(instrs)
	svc := &host.GRPCService{Engine: e}

	req, err := structpb.NewStruct(map[string]any{
		"type":  "Query",
		"field": "answer",
		"query": "{ value }",
		"input": map[string]any{"n": float64(9)},
	})
	require.NoError(t, err)

	_, err = callResolve(t, svc, req)
	require.NoError(t, err)
}

// callResolve invokes the registered Resolve method through the service
// descriptor's handler, the same path grpc.Server.handleStream uses, minus
// the wire decode (the decoder here just copies req into the destination
// message).
func callResolve(t *testing.T, svc *host.GRPCService, req *structpb.Struct) (any, error) {
	t.Helper()
	desc := host.ServiceDesc
	require.Len(t, desc.Methods, 1)
	dec := func(dst any) error {
		msg := dst.(*structpb.Struct)
		msg.Fields = req.Fields
		return nil
	}
	return desc.Methods[0].Handler(svc, context.Background(), dec, nil)
}
