// Package botkit is a framework for building chat and automation bots
// around an event dispatch and plugin-pipeline engine.
//
// The hard part of a bot is not any single protocol connector but the
// engine behind them: ingest events from N concurrently running adapters,
// decide which registered handlers apply, resolve each handler's declared
// dependencies through a per-event injection context, run matching
// handlers in deterministic priority order with block short-circuiting,
// isolate per-handler failures, and hot-reload the plugin set without
// dropping in-flight events. botkit is that engine.
//
// A minimal bot:
//
//	echo := node.New("echo", func(ctx context.Context, evt event.Event, rc *resolve.Context) error {
//		log.Printf("got %s: %v", evt.Type(), evt.Data())
//		return nil
//	}, node.WithRule(rule.Category(event.CategoryMessage)))
//
//	bot, err := botkit.New(
//		botkit.WithPlugins(registry.Plugin{Name: "echo", Nodes: []*node.Node{echo}}),
//		botkit.WithAdapters(myAdapter),
//		botkit.WithLogger(slog.Default()),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	err = bot.Run(ctx)
//
// Packages:
//
//   - event: immutable normalized events
//   - resolve: per-event dependency injection with memoization and teardown
//   - rule: composable rule/permission predicates
//   - node: handler descriptors (priority, block flag, predicate, deps)
//   - registry: plugin loading and atomic hot reload
//   - dispatch: the event bus and priority-tiered execution
//   - adapter: the protocol-connector contract and its supervisor
//   - journal: optional dispatch-outcome persistence
//   - config, errors, observability: the supporting stack
package botkit
