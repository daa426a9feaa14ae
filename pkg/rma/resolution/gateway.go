package resolution

import (
	"context"
	"strings"

	"rma-engine-be/internal/entity"

	"github.com/google/uuid"
)

// Gateway moves money or goods for a resolution. It returns the external
// reference of the settlement.
type Gateway interface {
	Refund(ctx context.Context, rma *entity.RMA, refund entity.RefundDetails) (string, error)
	Exchange(ctx context.Context, rma *entity.RMA, exchange entity.ExchangeDetails) (string, error)
	IssueCredit(ctx context.Context, rma *entity.RMA, credit entity.StoreCreditDetails) (string, error)
}

// LocalGateway settles everything immediately with generated references.
type LocalGateway struct{}

func NewLocalGateway() *LocalGateway {
	return &LocalGateway{}
}

func reference(prefix string) string {
	return prefix + "-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

func (LocalGateway) Refund(ctx context.Context, rma *entity.RMA, refund entity.RefundDetails) (string, error) {
	return reference("RF"), nil
}

func (LocalGateway) Exchange(ctx context.Context, rma *entity.RMA, exchange entity.ExchangeDetails) (string, error) {
	return reference("EX"), nil
}

func (LocalGateway) IssueCredit(ctx context.Context, rma *entity.RMA, credit entity.StoreCreditDetails) (string, error) {
	return reference("SC"), nil
}
