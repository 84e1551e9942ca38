package usecase

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/mido200912/Ai-Thor/domain/model"
	"github.com/mido200912/Ai-Thor/infrastructure/logger"
)

// IDeletionUsecase answers Meta's user data deletion callback. No data is
// deleted yet; the response only satisfies the platform contract.
type IDeletionUsecase interface {
	RequestDeletion(ctx context.Context, signedRequest string) (*model.DataDeletionResponse, error)
}

type deletionUsecase struct {
	baseURL string
	now     func() time.Time
}

func NewDeletionUsecase(baseURL string) IDeletionUsecase {
	return &deletionUsecase{baseURL: baseURL, now: time.Now}
}

func (u *deletionUsecase) RequestDeletion(ctx context.Context, signedRequest string) (*model.DataDeletionResponse, error) {
	code := fmt.Sprintf("del_%d", u.now().UnixMilli())
	logger.GetLogger().
		WithField("confirmation_code", code).
		WithField("signed_request", signedRequest != "").
		Info("meta data deletion requested")
	return &model.DataDeletionResponse{
		URL:              u.baseURL + "/data-deletion-status?code=" + url.QueryEscape(code),
		ConfirmationCode: code,
	}, nil
}
