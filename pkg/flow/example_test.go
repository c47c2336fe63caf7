package flow_test

import (
	"context"
	"fmt"

	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/pkg/flow"
)

func ExampleFlow() {
	ctx := context.Background()

	double := flow.NewNode("double", flow.Funcs{
		PrepFn: func(ctx context.Context, shared flow.Shared) (any, error) {
			return shared["n"], nil
		},
		ExecFn: func(ctx context.Context, prep any) (any, error) {
			return prep.(int) * 2, nil
		},
		PostFn: func(ctx context.Context, shared flow.Shared, prep, exec any) (flow.Action, error) {
			shared["n"] = exec
			if exec.(int) > 10 {
				return "big", nil
			}
			return flow.ActionDefault, nil
		},
	})

	report := flow.NewNode("report", flow.Funcs{
		PostFn: func(ctx context.Context, shared flow.Shared, prep, exec any) (flow.Action, error) {
			fmt.Println("result:", shared["n"])
			return flow.ActionDefault, nil
		},
	})

	// "big" results skip the report node and terminate the flow.
	double.Then(report)

	shared := flow.Shared{"n": 3}
	if _, err := flow.NewFlow("doubler", double).Run(ctx, shared); err != nil {
		panic(err)
	}

	// Output:
	// result: 6
}

func ExampleRetry() {
	attempts := 0
	flaky := flow.NewNode("flaky", flow.Funcs{
		ExecFn: func(ctx context.Context, prep any) (any, error) {
			attempts++
			if attempts < 3 {
				return nil, fmt.Errorf("attempt %d failed", attempts)
			}
			return "ok", nil
		},
		PostFn: func(ctx context.Context, shared flow.Shared, prep, exec any) (flow.Action, error) {
			fmt.Println(exec)
			return flow.ActionDefault, nil
		},
	}, flow.WithRetry(flow.Retry(3).Immediate().Policy()))

	shared := flow.Shared{}
	if _, err := flow.NewFlow("retrying", flaky).Run(context.Background(), shared); err != nil {
		panic(err)
	}

	// Output:
	// ok
}
