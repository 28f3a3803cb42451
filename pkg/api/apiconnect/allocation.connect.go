package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/mmynk/splitledger/pkg/api"
)

// AllocationServiceName is the fully-qualified name of the AllocationService service.
const AllocationServiceName = "splitledger.v1.AllocationService"

const (
	AllocationServiceInitializeProcedure = "/splitledger.v1.AllocationService/Initialize"
	AllocationServiceApplyProcedure      = "/splitledger.v1.AllocationService/Apply"
	AllocationServiceEvenSplitProcedure  = "/splitledger.v1.AllocationService/EvenSplit"
)

// AllocationServiceClient is a client for the splitledger.v1.AllocationService service.
type AllocationServiceClient interface {
	Initialize(context.Context, *connect.Request[api.InitializeRequest]) (*connect.Response[api.InitializeResponse], error)
	Apply(context.Context, *connect.Request[api.ApplyRequest]) (*connect.Response[api.ApplyResponse], error)
	EvenSplit(context.Context, *connect.Request[api.EvenSplitRequest]) (*connect.Response[api.EvenSplitResponse], error)
}

// NewAllocationServiceClient constructs a client for the splitledger.v1.AllocationService service.
func NewAllocationServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) AllocationServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &allocationServiceClient{
		initialize: connect.NewClient[api.InitializeRequest, api.InitializeResponse](
			httpClient, baseURL+AllocationServiceInitializeProcedure, opts...,
		),
		apply: connect.NewClient[api.ApplyRequest, api.ApplyResponse](
			httpClient, baseURL+AllocationServiceApplyProcedure, opts...,
		),
		evenSplit: connect.NewClient[api.EvenSplitRequest, api.EvenSplitResponse](
			httpClient, baseURL+AllocationServiceEvenSplitProcedure, opts...,
		),
	}
}

type allocationServiceClient struct {
	initialize *connect.Client[api.InitializeRequest, api.InitializeResponse]
	apply      *connect.Client[api.ApplyRequest, api.ApplyResponse]
	evenSplit  *connect.Client[api.EvenSplitRequest, api.EvenSplitResponse]
}

func (c *allocationServiceClient) Initialize(ctx context.Context, req *connect.Request[api.InitializeRequest]) (*connect.Response[api.InitializeResponse], error) {
	return c.initialize.CallUnary(ctx, req)
}

func (c *allocationServiceClient) Apply(ctx context.Context, req *connect.Request[api.ApplyRequest]) (*connect.Response[api.ApplyResponse], error) {
	return c.apply.CallUnary(ctx, req)
}

func (c *allocationServiceClient) EvenSplit(ctx context.Context, req *connect.Request[api.EvenSplitRequest]) (*connect.Response[api.EvenSplitResponse], error) {
	return c.evenSplit.CallUnary(ctx, req)
}

// AllocationServiceHandler is implemented by the server.
type AllocationServiceHandler interface {
	Initialize(context.Context, *connect.Request[api.InitializeRequest]) (*connect.Response[api.InitializeResponse], error)
	Apply(context.Context, *connect.Request[api.ApplyRequest]) (*connect.Response[api.ApplyResponse], error)
	EvenSplit(context.Context, *connect.Request[api.EvenSplitRequest]) (*connect.Response[api.EvenSplitResponse], error)
}

// NewAllocationServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewAllocationServiceHandler(svc AllocationServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	initialize := connect.NewUnaryHandler(AllocationServiceInitializeProcedure, svc.Initialize, opts...)
	apply := connect.NewUnaryHandler(AllocationServiceApplyProcedure, svc.Apply, opts...)
	evenSplit := connect.NewUnaryHandler(AllocationServiceEvenSplitProcedure, svc.EvenSplit, opts...)
	return "/splitledger.v1.AllocationService/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case AllocationServiceInitializeProcedure:
			initialize.ServeHTTP(w, r)
		case AllocationServiceApplyProcedure:
			apply.ServeHTTP(w, r)
		case AllocationServiceEvenSplitProcedure:
			evenSplit.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}
