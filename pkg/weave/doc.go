// Package weave is a state-machine workflow engine for multi-agent
// collaboration. Workflows are directed graphs of Task, Decision, Fork,
// Join, and terminal nodes; Task nodes delegate work to named agent
// collaborators, Decision nodes route on guard expressions evaluated
// against the accumulated run context, and Fork/Join nodes run branches
// concurrently and barrier at a declared join point.
//
// Graphs are assembled with a Builder (or loaded declaratively via the
// definition package) and validated once at Build time. An Engine owns a
// registry of named workflow instances, drives execution, captures
// checkpoints after completed Task nodes, and resumes runs from a
// checkpoint or from the in-memory position.
//
// Typical use:
//
//	eng := weave.New(
//	    weave.WithCheckpointStore(store),
//	    weave.WithAgents(agents),
//	)
//	g, err := weave.ReviewRefineLoop("author", "reviewer", "arbiter", 3)
//	w, err := eng.Register("code-review", g)
//	err = eng.Execute(ctx, w.ID(), "draft the API proposal")
//	out, ok := w.Context().Get(weave.OutputKey)
package weave
