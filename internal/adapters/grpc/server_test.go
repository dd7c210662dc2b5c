package grpc

import (
	"context"
	"net"
	"testing"

	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/adapters/memory"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/domain"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	employer = domain.Address("0x1111111111111111111111111111111111111111")
	worker   = domain.Address("0x2222222222222222222222222222222222222222")
)

func newTestClient(t *testing.T) (*DealQueryClient, *application.Service) {
	t.Helper()
	svc := application.NewService(application.Dependencies{Store: memory.NewStore()})
	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	Register(server, NewDealQueryService(svc))
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return NewDealQueryClient(conn), svc
}

func TestDealQueryService(t *testing.T) {
	t.Parallel()
	client, svc := newTestClient(t)
	ctx := context.Background()
	_, err := svc.CreateDeal(ctx, application.Actor{Address: employer}, application.CreateDealInput{
		Worker: worker.String(), Terms: "Build a page", Budget: 100, Penalty: 10, Duration: 60, SuppliedValue: 110,
	})
	if err != nil {
		t.Fatalf("CreateDeal: %v", err)
	}

	deal, err := client.GetDeal(ctx, 0)
	if err != nil {
		t.Fatalf("GetDeal: %v", err)
	}
	fields := deal.GetFields()
	if fields["status"].GetStringValue() != "OPEN" || fields["budget"].GetStringValue() != "100" || fields["worker"].GetStringValue() != worker.String() {
		t.Fatalf("unexpected deal %v", fields)
	}

	ids, err := client.ListDealsForAddress(ctx, worker.String(), "worker")
	if err != nil {
		t.Fatalf("ListDealsForAddress: %v", err)
	}
	list := ids.GetFields()["deal_ids"].GetListValue().GetValues()
	if len(list) != 1 || list[0].GetStringValue() != "0" {
		t.Fatalf("unexpected ids %v", list)
	}

	balance, err := client.GetContractBalance(ctx)
	if err != nil || balance != 110 {
		t.Fatalf("GetContractBalance = %d, %v", balance, err)
	}

	reqs, err := client.ListArbitrationRequests(ctx, 0)
	if err != nil || len(reqs.GetValues()) != 0 {
		t.Fatalf("ListArbitrationRequests = %v, %v", reqs, err)
	}
}

func TestDealQueryServiceErrorCodes(t *testing.T) {
	t.Parallel()
	client, _ := newTestClient(t)
	ctx := context.Background()
	if _, err := client.GetDeal(ctx, 7); status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if _, err := client.ListDealsForAddress(ctx, "nope", "worker"); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
	if _, err := client.ListDealsForAddress(ctx, worker.String(), "arbiter"); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument for role, got %v", err)
	}
}

func TestListArbitrationRequestsCarriesResolution(t *testing.T) {
	t.Parallel()
	client, svc := newTestClient(t)
	ctx := context.Background()
	if _, err := svc.CreateDeal(ctx, application.Actor{Address: employer}, application.CreateDealInput{
		Worker: worker.String(), Terms: "Build a page", Budget: 100, Penalty: 10, Duration: 60, SuppliedValue: 110,
	}); err != nil {
		t.Fatalf("CreateDeal: %v", err)
	}
	if _, err := svc.AcceptDeal(ctx, application.Actor{Address: worker}, application.AcceptDealInput{DealID: 0}); err != nil {
		t.Fatalf("AcceptDeal: %v", err)
	}
	if _, err := svc.RequestAIResolution(ctx, application.Actor{Address: worker}, application.RequestResolutionInput{DealID: 0, ProofURL: "https://example.com/proof"}); err != nil {
		t.Fatalf("RequestAIResolution: %v", err)
	}

	pending, err := client.ListArbitrationRequests(ctx, 0)
	if err != nil || len(pending.GetValues()) != 1 {
		t.Fatalf("ListArbitrationRequests = %v, %v", pending, err)
	}
	if _, isNull := pending.GetValues()[0].GetStructValue().GetFields()["resolved_at"].GetKind().(*structpb.Value_NullValue); !isNull {
		t.Fatalf("pending request must carry a null resolved_at, got %v", pending.GetValues()[0])
	}

	arbiter := application.Actor{Address: domain.Address("0x4444444444444444444444444444444444444444"), Role: application.RoleArbiter}
	if _, err := svc.ApplyVerdict(ctx, arbiter, application.ApplyVerdictInput{DealID: 0, Verdict: "worker_prevails"}); err != nil {
		t.Fatalf("ApplyVerdict: %v", err)
	}
	resolved, err := client.ListArbitrationRequests(ctx, 0)
	if err != nil || len(resolved.GetValues()) != 1 {
		t.Fatalf("ListArbitrationRequests = %v, %v", resolved, err)
	}
	fields := resolved.GetValues()[0].GetStructValue().GetFields()
	if fields["status"].GetStringValue() != domain.ArbitrationStatusResolved || fields["resolved_at"].GetStringValue() == "" {
		t.Fatalf("expected resolved request with resolved_at, got %v", fields)
	}
}
