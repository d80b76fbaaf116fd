package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	pb "github.com/ahmedafzal2677/exact-sol-task/proto/auth"
	"github.com/ahmedafzal2677/exact-sol-task/services/auth/internal/models"
	"github.com/ahmedafzal2677/exact-sol-task/services/auth/internal/service"
	"github.com/ahmedafzal2677/exact-sol-task/shared/logger"
	"github.com/ahmedafzal2677/exact-sol-task/shared/token"
)

func startServer(t *testing.T) (pb.AuthServiceClient, *service.AuthService) {
	t.Helper()

	dir, err := service.NewDirectory(models.DemoAccounts, bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	auth := service.NewAuthService(dir, token.NewIssuer("s", time.Hour), logger.Discard())

	lis := bufconn.Listen(1 << 20)
	srv := grpclib.NewServer()
	pb.RegisterAuthServiceServer(srv, &Server{Auth: auth, Logger: logger.Discard()})
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpclib.NewClient("passthrough:///bufnet",
		grpclib.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpclib.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return pb.NewAuthServiceClient(conn), auth
}

func TestVerify_Valid(t *testing.T) {
	client, auth := startServer(t)

	sess, err := auth.Login(context.Background(), "anc@xyz.com", "abc123")
	if err != nil {
		t.Fatal(err)
	}

	resp, err := client.Verify(context.Background(), &pb.VerifyRequest{Token: sess.Token})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !resp.Valid || resp.Subject != "1" || resp.Role != "admin" || resp.Name != "Admin User" {
		t.Fatalf("resp=%+v", resp)
	}
}

func TestVerify_Invalid(t *testing.T) {
	client, _ := startServer(t)

	_, err := client.Verify(context.Background(), &pb.VerifyRequest{Token: "bogus"})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}
}
