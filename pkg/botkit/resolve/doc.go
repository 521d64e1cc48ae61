// Package resolve implements typed dependency resolution for handlers and
// predicates.
//
// A handler declares what it needs as a set of Specs. Each Spec names a
// provider and the Specs it in turn requires, forming a DAG that is
// validated for cycles at registration time. At dispatch, the dispatcher
// creates one Context per event; every resolution within that event is
// memoized by spec identity, so two handlers requesting the same spec share
// one resolved instance.
//
// Two provider kinds exist: plain value providers, and scoped-resource
// providers whose release hooks run during Context.Teardown in reverse
// resolution order - after all handlers for the event finished, even if one
// of them failed.
//
//	db := resolve.NewScopedSpec("db-conn", openConn)
//	profile := resolve.NewSpec("sender-profile", loadProfile, db)
//
//	// inside a handler or predicate:
//	p, err := resolve.Value[*Profile](ctx, rc, profile)
package resolve
