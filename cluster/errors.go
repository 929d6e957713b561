package cluster

import (
	"context"
	"errors"
	"fmt"

	"ltlmc/store"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var ErrRunMismatch = errors.New("cluster: request belongs to another run")

// toStatus turns a worker error into a gRPC status the client can map back.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, store.ErrResourceExhausted):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, ErrRunMismatch):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(codes.Internal, err.Error())
}

func fromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.ResourceExhausted:
		return fmt.Errorf("%w: %s", store.ErrResourceExhausted, st.Message())
	case codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", ErrRunMismatch, st.Message())
	}
	return err
}
