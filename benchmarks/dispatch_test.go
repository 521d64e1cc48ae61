package benchmarks

import (
	"context"
	"fmt"
	"testing"

	"github.com/randalmurphal/botkit/pkg/botkit/dispatch"
	"github.com/randalmurphal/botkit/pkg/botkit/event"
	"github.com/randalmurphal/botkit/pkg/botkit/node"
	"github.com/randalmurphal/botkit/pkg/botkit/registry"
	"github.com/randalmurphal/botkit/pkg/botkit/resolve"
	"github.com/randalmurphal/botkit/pkg/botkit/rule"
)

func noop(context.Context, event.Event, *resolve.Context) error {
	return nil
}

func benchDispatcher(b *testing.B, nodes []*node.Node, opts ...dispatch.Option) *dispatch.Dispatcher {
	b.Helper()
	reg := registry.New()
	if err := reg.Load(registry.Plugin{Name: "bench", Nodes: nodes}); err != nil {
		b.Fatal(err)
	}
	d := dispatch.New(reg, opts...)
	if err := d.Start(context.Background()); err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = d.Stop(context.Background()) })
	return d
}

func benchEvent() event.Event {
	return event.NewAny("message.text", event.CategoryMessage, "bench", "payload")
}

// BenchmarkDispatchSingleNode measures the base cost of one dispatch cycle.
func BenchmarkDispatchSingleNode(b *testing.B) {
	d := benchDispatcher(b, []*node.Node{node.New("n", noop)})
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		comp, err := d.Submit(ctx, benchEvent())
		if err != nil {
			b.Fatal(err)
		}
		if err := comp.Wait(ctx); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkDispatchManyTiers measures tier-by-tier execution overhead.
func BenchmarkDispatchManyTiers(b *testing.B) {
	for _, tiers := range []int{4, 16, 64} {
		b.Run(fmt.Sprintf("tiers-%d", tiers), func(b *testing.B) {
			nodes := make([]*node.Node, tiers)
			for i := range nodes {
				nodes[i] = node.New(fmt.Sprintf("n%d", i), noop, node.WithPriority(i))
			}
			d := benchDispatcher(b, nodes)
			ctx := context.Background()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				comp, err := d.Submit(ctx, benchEvent())
				if err != nil {
					b.Fatal(err)
				}
				if err := comp.Wait(ctx); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkDispatchWideTier measures within-tier fan-out, concurrent vs
// sequential.
func BenchmarkDispatchWideTier(b *testing.B) {
	mkNodes := func() []*node.Node {
		nodes := make([]*node.Node, 32)
		for i := range nodes {
			nodes[i] = node.New(fmt.Sprintf("n%d", i), noop)
		}
		return nodes
	}

	for _, mode := range []string{"concurrent", "sequential"} {
		b.Run(mode, func(b *testing.B) {
			var opts []dispatch.Option
			if mode == "sequential" {
				opts = append(opts, dispatch.WithSequentialTiers())
			}
			d := benchDispatcher(b, mkNodes(), opts...)
			ctx := context.Background()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				comp, err := d.Submit(ctx, benchEvent())
				if err != nil {
					b.Fatal(err)
				}
				if err := comp.Wait(ctx); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkPredicateFiltering measures matching cost with mostly
// non-matching nodes.
func BenchmarkPredicateFiltering(b *testing.B) {
	nodes := make([]*node.Node, 64)
	for i := range nodes {
		// Only one node matches message events.
		r := rule.Type("notice.never")
		if i == 0 {
			r = rule.Category(event.CategoryMessage)
		}
		nodes[i] = node.New(fmt.Sprintf("n%d", i), noop, node.WithRule(r))
	}
	d := benchDispatcher(b, nodes)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		comp, err := d.Submit(ctx, benchEvent())
		if err != nil {
			b.Fatal(err)
		}
		if err := comp.Wait(ctx); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkResolution measures dependency-graph resolution per event.
func BenchmarkResolution(b *testing.B) {
	leaf := resolve.NewSpec("leaf", func(context.Context, *resolve.Context) (any, error) {
		return 1, nil
	})
	mid := resolve.NewSpec("mid", func(_ context.Context, rc *resolve.Context) (any, error) {
		v, err := rc.Get(leaf)
		if err != nil {
			return nil, err
		}
		return v.(int) + 1, nil
	}, leaf)
	top := resolve.NewSpec("top", func(_ context.Context, rc *resolve.Context) (any, error) {
		v, err := rc.Get(mid)
		if err != nil {
			return nil, err
		}
		return v.(int) + 1, nil
	}, mid)

	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rc := resolve.NewContext()
		if _, err := rc.Resolve(ctx, top); err != nil {
			b.Fatal(err)
		}
		if err := rc.Teardown(ctx); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkSnapshotPublish measures reload cost under load.
func BenchmarkSnapshotPublish(b *testing.B) {
	reg := registry.New()
	mk := func() registry.Plugin {
		nodes := make([]*node.Node, 16)
		for i := range nodes {
			nodes[i] = node.New(fmt.Sprintf("n%d", i), noop, node.WithPriority(i%4))
		}
		return registry.Plugin{Name: "bench", Nodes: nodes}
	}
	if err := reg.Load(mk()); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := reg.Reload(mk()); err != nil {
			b.Fatal(err)
		}
	}
}
