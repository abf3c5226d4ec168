// Package codec exposes narration over gRPC. Payloads travel as
// google.protobuf.Struct so the service needs no generated stubs.
package codec

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/narrative-engine/internal/schema"
)

// #region service-desc
const (
	ServiceName   = "narrative.v1.NarrationService"
	narrateMethod = "/" + ServiceName + "/Narrate"
)

// NarrationServer is the server side of the service.
type NarrationServer interface {
	Narrate(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func narrateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NarrationServer).Narrate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: narrateMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(NarrationServer).Narrate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc describes NarrationService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*NarrationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Narrate", Handler: narrateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "narrative/v1/narration.proto",
}

// RegisterNarrationServer registers srv on s.
func RegisterNarrationServer(s grpc.ServiceRegistrar, srv NarrationServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// #endregion service-desc

// #region payloads
// Request asks for one narration in a session. Seed is only used when the
// session is created.
type Request struct {
	Session  string           `json:"session"`
	Seed     uint64           `json:"seed,string"`
	Event    schema.Event     `json:"event"`
	Entities []*schema.Entity `json:"entities"`
}

// Response carries the accepted text.
type Response struct {
	Text    string `json:"text"`
	Rule    string `json:"rule"`
	Voice   string `json:"voice,omitempty"`
	Retries int    `json:"retries"`
	Counter uint64 `json:"counter,string"`
}

// World indexes the request's entities.
func (r Request) World() schema.World {
	return schema.NewWorld(r.Entities...)
}

func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return structpb.NewStruct(m)
}

func fromStruct(s *structpb.Struct, v any) error {
	data, err := s.MarshalJSON()
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// #endregion payloads
