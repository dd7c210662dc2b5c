package grpc

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/domain"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type DealQueryService struct {
	service *application.Service
}

func NewDealQueryService(service *application.Service) *DealQueryService {
	return &DealQueryService{service: service}
}

func (s *DealQueryService) GetDeal(ctx context.Context, req *wrapperspb.UInt64Value) (*structpb.Struct, error) {
	deal, err := s.service.GetDeal(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := structpb.NewStruct(dealFields(deal, s.service.Now()))
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *DealQueryService) ListDealsForAddress(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	address := fields["address"].GetStringValue()
	role, err := domain.ParseRole(fields["role"].GetStringValue())
	if err != nil {
		return nil, toStatus(err)
	}
	var ids []uint64
	if role == domain.RoleWorker {
		ids, err = s.service.GetDealsForWorker(ctx, address)
	} else {
		ids, err = s.service.GetDealsForEmployer(ctx, address)
	}
	if err != nil {
		return nil, toStatus(err)
	}
	list := make([]any, 0, len(ids))
	for _, id := range ids {
		list = append(list, strconv.FormatUint(id, 10))
	}
	out, err := structpb.NewStruct(map[string]any{"role": string(role), "deal_ids": list})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *DealQueryService) GetContractBalance(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.UInt64Value, error) {
	balance, err := s.service.GetContractBalance(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.UInt64(balance), nil
}

func (s *DealQueryService) ListArbitrationRequests(ctx context.Context, req *wrapperspb.UInt64Value) (*structpb.ListValue, error) {
	reqs, err := s.service.ListArbitrationRequests(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	items := make([]any, 0, len(reqs))
	for _, r := range reqs {
		item := map[string]any{
			"request_id":   r.RequestID,
			"deal_id":      strconv.FormatUint(r.DealID, 10),
			"proof_url":    r.ProofURL,
			"status":       r.Status,
			"verdict":      string(r.Verdict),
			"submitted_at": r.SubmittedAt.UTC().Format(time.RFC3339),
			"resolved_at":  nil,
		}
		if r.ResolvedAt != nil {
			item["resolved_at"] = r.ResolvedAt.UTC().Format(time.RFC3339)
		}
		items = append(items, item)
	}
	out, err := structpb.NewList(items)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// dealFields renders u64 quantities as decimal strings; a Struct number is
// a float64 and cannot carry every u64.
func dealFields(d domain.Deal, now time.Time) map[string]any {
	return map[string]any{
		"id":          strconv.FormatUint(d.ID, 10),
		"employer":    d.Employer.String(),
		"worker":      d.Worker.String(),
		"terms":       d.Terms,
		"budget":      strconv.FormatUint(d.Budget, 10),
		"penalty":     strconv.FormatUint(d.Penalty, 10),
		"duration":    strconv.FormatUint(d.Duration, 10),
		"status":      d.Status.String(),
		"status_code": int(d.Status),
		"created_at":  strconv.FormatUint(d.CreatedAt, 10),
		"deadline_at": strconv.FormatUint(d.DeadlineAt(), 10),
		"overdue":     d.Overdue(now),
		"halted":      d.Halted,
	}
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrAuthorization):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, domain.ErrState), errors.Is(err, domain.ErrCustodyCapacity):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrExternalFailure):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

var _ DealQueryServer = (*DealQueryService)(nil)
