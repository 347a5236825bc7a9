package app

import (
	"context"
	"errors"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dmehra2102/todo-realtime/internal/domain"
	"github.com/dmehra2102/todo-realtime/internal/events"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceName = "todo.v1.TodoService"

// TodoServer is the gRPC surface of the todo service. Messages are
// google.protobuf.Struct so the service needs no generated code.
type TodoServer interface {
	Find(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Get(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Create(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Update(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Patch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Remove(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Watch(*structpb.Struct, grpc.ServerStream) error
}

// Subscriber hands out real-time event subscriptions.
type Subscriber interface {
	Subscribe(buffer int) *events.Subscription
}

type TodoServiceServer struct {
	svc    *TodoService
	subs   Subscriber
	buffer int
	logger *zap.Logger
}

func NewTodoServiceServer(svc *TodoService, subs Subscriber, buffer int, logger *zap.Logger) *TodoServiceServer {
	return &TodoServiceServer{
		svc:    svc,
		subs:   subs,
		buffer: buffer,
		logger: logger,
	}
}

// RegisterTodoServiceServer registers srv with s under todo.v1.TodoService.
func RegisterTodoServiceServer(s grpc.ServiceRegistrar, srv TodoServer) {
	s.RegisterService(&todoServiceDesc, srv)
}

var todoServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*TodoServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Find", Handler: unaryHandler("Find", TodoServer.Find)},
		{MethodName: "Get", Handler: unaryHandler("Get", TodoServer.Get)},
		{MethodName: "Create", Handler: unaryHandler("Create", TodoServer.Create)},
		{MethodName: "Update", Handler: unaryHandler("Update", TodoServer.Update)},
		{MethodName: "Patch", Handler: unaryHandler("Patch", TodoServer.Patch)},
		{MethodName: "Remove", Handler: unaryHandler("Remove", TodoServer.Remove)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       watchHandler,
			ServerStreams: true,
		},
	},
	Metadata: "todo/v1/todo.proto",
}

type unaryCall func(TodoServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) grpc.MethodHandler {
	fullMethod := "/" + serviceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(TodoServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(TodoServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(TodoServer).Watch(in, stream)
}

func (s *TodoServiceServer) Find(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	query, err := queryFromStruct(req.GetFields()["query"].GetStructValue())
	if err != nil {
		return nil, mapDomainError(err)
	}

	todos, err := s.svc.Find(ctx, query)
	if err != nil {
		return nil, mapDomainError(err)
	}

	values := make([]*structpb.Value, len(todos))
	for i, todo := range todos {
		values[i] = structpb.NewStructValue(todoToStruct(todo))
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"data": structpb.NewListValue(&structpb.ListValue{Values: values}),
	}}, nil
}

func (s *TodoServiceServer) Get(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := idFromRequest(req)
	if err != nil {
		return nil, err
	}

	todo, err := s.svc.Get(ctx, id)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return todoToStruct(todo), nil
}

func (s *TodoServiceServer) Create(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	data, err := dataFromRequest(req)
	if err != nil {
		return nil, err
	}

	todo, err := s.svc.Create(ctx, domain.ParseInput(data))
	if err != nil {
		return nil, mapDomainError(err)
	}
	return todoToStruct(todo), nil
}

func (s *TodoServiceServer) Update(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := idFromRequest(req)
	if err != nil {
		return nil, err
	}

	data, err := dataFromRequest(req)
	if err != nil {
		return nil, err
	}

	todo, err := s.svc.Update(ctx, id, domain.ParseInput(data))
	if err != nil {
		return nil, mapDomainError(err)
	}
	return todoToStruct(todo), nil
}

func (s *TodoServiceServer) Patch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := idFromRequest(req)
	if err != nil {
		return nil, err
	}

	data, err := dataFromRequest(req)
	if err != nil {
		return nil, err
	}

	todo, err := s.svc.Patch(ctx, id, domain.ParsePatch(data))
	if err != nil {
		return nil, mapDomainError(err)
	}
	return todoToStruct(todo), nil
}

func (s *TodoServiceServer) Remove(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := idFromRequest(req)
	if err != nil {
		return nil, err
	}

	todo, err := s.svc.Remove(ctx, id)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return todoToStruct(todo), nil
}

// Watch streams every mutation until the client goes away or the hub closes.
func (s *TodoServiceServer) Watch(_ *structpb.Struct, stream grpc.ServerStream) error {
	ctx := stream.Context()
	sub := s.subs.Subscribe(s.buffer)
	defer sub.Close()

	s.logger.Info("watch stream opened", zap.String("subscriber_id", sub.ID))
	defer s.logger.Info("watch stream closed", zap.String("subscriber_id", sub.ID))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.Events():
			if !ok {
				return status.Error(codes.Unavailable, "event stream closed")
			}
			msg := &structpb.Struct{Fields: map[string]*structpb.Value{
				"event": structpb.NewStringValue(string(ev.Method)),
				"data":  structpb.NewStructValue(todoToStruct(ev.Todo)),
			}}
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
		}
	}
}

func todoToStruct(todo *domain.Todo) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":        structpb.NewNumberValue(float64(todo.ID)),
		"text":      structpb.NewStringValue(todo.Text),
		"completed": structpb.NewBoolValue(todo.Completed),
		"createdAt": structpb.NewStringValue(todo.CreatedAt.Format(time.RFC3339Nano)),
		"updatedAt": structpb.NewStringValue(todo.UpdatedAt.Format(time.RFC3339Nano)),
	}}
}

func idFromRequest(req *structpb.Struct) (int64, error) {
	v, ok := req.GetFields()["id"]
	if !ok {
		return 0, status.Error(codes.InvalidArgument, "id is required")
	}

	switch kind := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		n := kind.NumberValue
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, status.Error(codes.InvalidArgument, "id must be an integer")
		}
		return int64(n), nil
	case *structpb.Value_StringValue:
		id, err := strconv.ParseInt(kind.StringValue, 10, 64)
		if err != nil {
			return 0, status.Error(codes.InvalidArgument, "id must be an integer")
		}
		return id, nil
	default:
		return 0, status.Error(codes.InvalidArgument, "id must be an integer")
	}
}

func dataFromRequest(req *structpb.Struct) (map[string]any, error) {
	v, ok := req.GetFields()["data"]
	if !ok {
		return map[string]any{}, nil
	}
	data := v.GetStructValue()
	if data == nil {
		return nil, status.Error(codes.InvalidArgument, "data must be an object")
	}
	return data.AsMap(), nil
}

// queryFromStruct reads completed, $skip, $limit, $sort and plain field
// equality filters. $sort is either a
// list of single-key objects, which keeps key order, or one object whose keys
// are applied in lexical order.
func queryFromStruct(q *structpb.Struct) (*domain.Query, error) {
	query := &domain.Query{}
	fields := q.GetFields()

	if v, ok := fields["completed"]; ok {
		b, ok := v.GetKind().(*structpb.Value_BoolValue)
		if !ok {
			return nil, domain.NewValidationError("completed", "completed must be a boolean")
		}
		completed := b.BoolValue
		query.Completed = &completed
	}

	if v, ok := fields["$skip"]; ok {
		n, err := nonNegativeInt("$skip", v)
		if err != nil {
			return nil, err
		}
		query.Skip = n
	}

	if v, ok := fields["$limit"]; ok {
		n, err := nonNegativeInt("$limit", v)
		if err != nil {
			return nil, err
		}
		query.Limit = &n
	}

	if v, ok := fields["$sort"]; ok {
		var sortObjs []*structpb.Struct
		switch kind := v.GetKind().(type) {
		case *structpb.Value_StructValue:
			sortObjs = append(sortObjs, kind.StructValue)
		case *structpb.Value_ListValue:
			for _, item := range kind.ListValue.GetValues() {
				obj := item.GetStructValue()
				if obj == nil {
					return nil, domain.NewValidationError("$sort", "$sort entries must be objects")
				}
				sortObjs = append(sortObjs, obj)
			}
		default:
			return nil, domain.NewValidationError("$sort", "$sort must be an object or a list of objects")
		}

		for _, obj := range sortObjs {
			keys := make([]string, 0, len(obj.GetFields()))
			for field := range obj.GetFields() {
				keys = append(keys, field)
			}
			slices.Sort(keys)

			for _, field := range keys {
				dir, ok := obj.GetFields()[field].GetKind().(*structpb.Value_NumberValue)
				if !ok || (dir.NumberValue != 1 && dir.NumberValue != -1) {
					return nil, domain.NewValidationError("$sort", "sort direction for %q must be 1 or -1", field)
				}
				query.Sort = append(query.Sort, domain.SortKey{
					Field:     field,
					Direction: domain.SortDirection(dir.NumberValue),
				})
			}
		}
	}

	for field, v := range fields {
		switch field {
		case "completed", "$skip", "$limit", "$sort":
			continue
		}
		if strings.HasPrefix(field, "$") {
			return nil, domain.NewValidationError(field, "unsupported query operator %q", field)
		}

		var want string
		switch kind := v.GetKind().(type) {
		case *structpb.Value_StringValue:
			want = kind.StringValue
		case *structpb.Value_NumberValue:
			want = strconv.FormatFloat(kind.NumberValue, 'f', -1, 64)
		case *structpb.Value_BoolValue:
			want = strconv.FormatBool(kind.BoolValue)
		default:
			return nil, domain.NewValidationError(field, "filter on %q must be a string, number or boolean", field)
		}
		if query.Where == nil {
			query.Where = make(map[string]string)
		}
		query.Where[field] = want
	}

	return query, nil
}

func nonNegativeInt(name string, v *structpb.Value) (int, error) {
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue < 0 || n.NumberValue != math.Trunc(n.NumberValue) || n.NumberValue > math.MaxInt32 {
		return 0, domain.NewValidationError(name, "%s must be a non-negative integer", name)
	}
	return int(n.NumberValue), nil
}

func mapDomainError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, "internal server error")
	}
}
