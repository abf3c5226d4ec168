package codec

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region client-struct
// Client calls a remote NarrationService.
type Client struct {
	conn grpc.ClientConnInterface
	own  *grpc.ClientConn
}

// #endregion client-struct

// #region constructor
// NewClient connects to a narration server at addr.
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, own: conn}, nil
}

// NewClientWithConn wraps an existing connection. Close leaves it open.
func NewClientWithConn(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// #endregion constructor

// #region close
// Close shuts down a connection opened by NewClient.
func (c *Client) Close() error {
	if c.own == nil {
		return nil
	}
	return c.own.Close()
}

// #endregion close

// #region narrate
// Narrate sends one event to the server. gRPC status errors are wrapped, so
// status.Code(errors.Unwrap(err)) recovers the code.
func (c *Client) Narrate(ctx context.Context, req Request) (Response, error) {
	in, err := toStruct(req)
	if err != nil {
		return Response{}, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, narrateMethod, in, out); err != nil {
		return Response{}, fmt.Errorf("narrate rpc: %w", err)
	}
	var resp Response
	if err := fromStruct(out, &resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}

// #endregion narrate
