package codec

import (
	"context"
	"net"
	"testing"

	"go.uber.org/goleak"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/narrative-engine/internal/grammar"
	"github.com/danielpatrickdp/narrative-engine/internal/orchestrator"
	"github.com/danielpatrickdp/narrative-engine/internal/schema"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// #region harness
func testRules(t *testing.T) *grammar.Store {
	t.Helper()
	s := grammar.NewStore()
	for _, r := range []grammar.Rule{
		{Name: "alliance_opening", Alternatives: []grammar.Alternative{
			{Weight: 1, Template: "{subject.name} shook hands with {object.name}."},
			{Weight: 1, Template: "{subject.name} and {object.name} agreed to stand together."},
		}},
		{Name: "comic_relief", Alternatives: []grammar.Alternative{
			{Weight: 1, Template: "{subject.name} tripped over {possessive} own boots."},
		}},
		{Name: "loss", Alternatives: []grammar.Alternative{
			{Weight: 1, Template: "{subject.title} was gone."},
		}},
	} {
		if err := s.Add(r); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func startServer(t *testing.T) (*Server, *Client) {
	t.Helper()
	rules := testRules(t)
	srv := NewServer(func(session string, seed uint64) (*orchestrator.Engine, error) {
		return orchestrator.New(rules, orchestrator.Config{Seed: seed}, orchestrator.WithID(session)), nil
	}, nil)

	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer()
	RegisterNarrationServer(gs, srv)
	go gs.Serve(lis)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		conn.Close()
		gs.Stop()
	})
	return srv, NewClientWithConn(conn)
}

func entities() []*schema.Entity {
	return []*schema.Entity{
		{ID: 1, Name: "Odile", Pronouns: schema.PronounsSheHer},
		{ID: 2, Name: "Brann", Pronouns: schema.PronounsHeHim},
	}
}

func request(session string, fn schema.NarrativeFunction) Request {
	return Request{
		Session: session,
		Seed:    1 << 60,
		Event: schema.Event{
			NarrativeFn: fn,
			Mood:        schema.MoodWarm,
			Participants: []schema.EntityRef{
				{EntityID: 1, Role: "subject"},
				{EntityID: 2, Role: "object"},
			},
		},
		Entities: entities(),
	}
}

// #endregion harness

// #region narrate-tests
func TestNarrate_RoundTrip(t *testing.T) {
	srv, c := startServer(t)
	ctx := context.Background()

	resp, err := c.Narrate(ctx, request("s1", schema.FnAlliance))
	if err != nil {
		t.Fatal(err)
	}
	if resp.Rule != "alliance_opening" || resp.Counter != 0 || resp.Text == "" {
		t.Errorf("response %+v", resp)
	}

	resp, err = c.Narrate(ctx, request("s1", schema.FnComicRelief))
	if err != nil {
		t.Fatal(err)
	}
	if resp.Text != "Odile tripped over her own boots." || resp.Counter != 1 {
		t.Errorf("response %+v", resp)
	}

	if _, err := c.Narrate(ctx, request("s2", schema.FnComicRelief)); err != nil {
		t.Fatal(err)
	}
	if srv.Sessions() != 2 {
		t.Errorf("sessions %d", srv.Sessions())
	}
}

func TestNarrate_SessionKeepsFirstSeed(t *testing.T) {
	srv, c := startServer(t)
	ctx := context.Background()

	first := request("seeded", schema.FnAlliance)
	if _, err := c.Narrate(ctx, first); err != nil {
		t.Fatal(err)
	}
	later := request("seeded", schema.FnAlliance)
	later.Seed = 99
	got, err := c.Narrate(ctx, later)
	if err != nil {
		t.Fatal(err)
	}

	local := orchestrator.New(testRules(t), orchestrator.Config{Seed: first.Seed})
	if _, err := local.Narrate(first.Event, first.World()); err != nil {
		t.Fatal(err)
	}
	want, err := local.NarrateDetailed(first.Event, first.World())
	if err != nil {
		t.Fatal(err)
	}
	if got.Counter != 1 || got.Text != want.Text {
		t.Errorf("second call %+v, want counter 1 and %q", got, want.Text)
	}
	if srv.Sessions() != 1 {
		t.Errorf("sessions %d", srv.Sessions())
	}
}

func TestNarrate_MatchesLocalEngine(t *testing.T) {
	_, c := startServer(t)
	req := request("det", schema.FnAlliance)

	local := orchestrator.New(testRules(t), orchestrator.Config{Seed: req.Seed})
	want, err := local.Narrate(req.Event, req.World())
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.Narrate(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != want {
		t.Errorf("remote %q, local %q", got.Text, want)
	}
}

func TestNarrate_ErrorCodes(t *testing.T) {
	_, c := startServer(t)
	ctx := context.Background()

	missingEntity := request("e", schema.FnAlliance)
	missingEntity.Entities = missingEntity.Entities[:1]

	tests := []struct {
		name string
		req  Request
		code codes.Code
	}{
		{"no rule", request("e", schema.FnBetrayal), codes.NotFound},
		{"missing entity", missingEntity, codes.InvalidArgument},
		{"missing field", request("e", schema.FnLoss), codes.InvalidArgument},
		{"no session", request("", schema.FnAlliance), codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Narrate(ctx, tt.req)
			if got := status.Code(err); got != tt.code {
				t.Errorf("code %v, want %v (%v)", got, tt.code, err)
			}
		})
	}
}

func TestToStatus_GenerationFailed(t *testing.T) {
	err := toStatus(&orchestrator.GenerationFailedError{Retries: 3})
	if status.Code(err) != codes.Aborted {
		t.Errorf("got %v", err)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	req := request("p", schema.FnDiscovery)
	req.Event.Metadata = map[string]schema.Value{"weather": schema.StringValue("rain"), "turn": schema.IntValue(12)}

	s, err := toStruct(req)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Fields["seed"].GetKind().(*structpb.Value_StringValue); !ok {
		t.Error("seed should travel as a string to keep 64-bit precision")
	}
	var back Request
	if err := fromStruct(s, &back); err != nil {
		t.Fatal(err)
	}
	if back.Seed != req.Seed || back.Session != "p" || len(back.Entities) != 2 {
		t.Errorf("decoded %+v", back)
	}
	if back.Event.Metadata["weather"].String() != "rain" {
		t.Errorf("metadata %+v", back.Event.Metadata)
	}
}

// #endregion narrate-tests
