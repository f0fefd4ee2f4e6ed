package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/simaogato/papertrade-backend/internal/domain"
)

// Authenticator resolves an API key to its account
type Authenticator interface {
	Authenticate(ctx context.Context, apiKey string) (*domain.Account, error)
}

type accountKey struct{}

// AccountFromContext returns the account attached by AuthInterceptor
func AccountFromContext(ctx context.Context) (*domain.Account, bool) {
	account, ok := ctx.Value(accountKey{}).(*domain.Account)
	return account, ok && account != nil
}

// AuthInterceptor returns a gRPC unary server interceptor that resolves
// the API key in the authorization metadata to an account.
// If the key is missing or unknown, it returns status.Unauthenticated.
// If valid, it calls the handler with the account attached to the context.
func AuthInterceptor(auth Authenticator) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		authHeaders := md.Get("authorization")
		if len(authHeaders) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing authorization header")
		}

		account, err := auth.Authenticate(ctx, authHeaders[0])
		if err != nil {
			if domain.KindOf(err) == domain.KindUnauthenticated {
				return nil, status.Error(codes.Unauthenticated, "invalid api key")
			}
			return nil, mapError(err)
		}

		return handler(context.WithValue(ctx, accountKey{}, account), req)
	}
}
