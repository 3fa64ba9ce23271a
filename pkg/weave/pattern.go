package weave

import (
	"fmt"
	"strings"
)

// Pattern builders assemble reusable graphs for common collaboration
// shapes. Each returns an immutable Graph ready for Engine.Register;
// agents are referenced by registry name and resolved at run time.

// ReviewRefineLoop builds an iterative refinement workflow: an author
// proposes, a reviewer judges, and rejected work is revised up to
// maxIterations times before an arbiter escalation fails the run.
//
// The reviewer's verdict is read from the "approved" context key. The
// revise loop is bounded: at most maxIterations Revise cycles occur,
// then the unguarded escalation path is taken. maxIterations below 1
// defaults to 3.
func ReviewRefineLoop(author, reviewer, arbiter string, maxIterations int) (*Graph, error) {
	if maxIterations < 1 {
		maxIterations = 3
	}

	b := NewBuilder("Review-Refine Loop",
		"Iterative refinement with author, reviewer, and arbiter escalation")

	propose := b.Task("Propose", author,
		"Propose an initial solution for: ${input}", "")
	review := b.Task("Review", reviewer,
		"Review the current proposal and report your verdict", "approved")
	check := b.Decision("Check Verdict")
	revise := b.Task("Revise", author,
		"Revise the proposal to address the review feedback", "")
	escalate := b.Task("Escalate", arbiter,
		"Review iterations are exhausted without approval; summarize the disagreement", "")
	approved := b.Success("Approved")
	rejected := b.Failure("Rejected")

	b.Start(propose)
	b.Edge(propose, review)
	b.Edge(review, check)
	b.GuardedEdge(check, approved, "approved == true")
	b.LoopEdge(check, revise, fmt.Sprintf("approved == false and iteration < %d", maxIterations))
	b.Edge(check, escalate)
	b.Edge(revise, review)
	b.Edge(escalate, rejected)

	return b.Build()
}

// ParallelAnalysis builds a fork of analyst tasks that run
// concurrently, converge at a join, and hand their combined context to
// a synthesizing agent. At least two analysts are required.
func ParallelAnalysis(analysts []string, converger string) (*Graph, error) {
	if len(analysts) < 2 {
		return nil, fmt.Errorf("%w: parallel analysis needs at least 2 analysts, got %d",
			ErrMalformedGraph, len(analysts))
	}

	b := NewBuilder("Parallel Analysis",
		"Multiple analysts work in parallel, then converge")

	fork := b.Fork("Parallel Analysis")
	join := b.Join("Converge")
	b.SetJoin(fork, join)

	for i, analyst := range analysts {
		task := b.Task(fmt.Sprintf("Analyst %d", i+1), analyst,
			"Analyze from your perspective: ${input}", "")
		b.Edge(fork, task)
		b.Edge(task, join)
	}

	synthesize := b.Task("Synthesize", converger,
		"Synthesize all analyses into a single recommendation", "")
	done := b.Success("Done")

	b.Start(fork)
	b.Edge(join, synthesize)
	b.Edge(synthesize, done)

	return b.Build()
}

// SequentialPlanning builds a chain of planner tasks, each building on
// the context accumulated by its predecessors.
func SequentialPlanning(planners []string) (*Graph, error) {
	if len(planners) == 0 {
		return nil, fmt.Errorf("%w: sequential planning needs at least 1 planner",
			ErrMalformedGraph)
	}

	b := NewBuilder("Sequential Planning",
		"Chain of planners building on each other")

	var prev NodeID
	for i, planner := range planners {
		task := b.Task(fmt.Sprintf("Planner %d", i+1), planner,
			"Plan the next phase, building on the work so far", "")
		if i == 0 {
			b.Start(task)
		} else {
			b.Edge(prev, task)
		}
		prev = task
	}

	done := b.Success("Planned")
	b.Edge(prev, done)

	return b.Build()
}

// ConsensusBuilding builds a discussion loop: a facilitated discussion
// round scores the group's agreement into the "consensus" context key,
// and rounds repeat until the score reaches threshold or maxRounds
// rounds have run. The first participant facilitates.
func ConsensusBuilding(participants []string, threshold float64, maxRounds int) (*Graph, error) {
	if len(participants) == 0 {
		return nil, fmt.Errorf("%w: consensus building needs at least 1 participant",
			ErrMalformedGraph)
	}
	if maxRounds < 1 {
		maxRounds = 5
	}

	b := NewBuilder("Consensus Building",
		"Multi-agent discussion rounds until consensus is reached")

	discuss := b.Task("Discuss", participants[0],
		"Run a discussion round between "+strings.Join(participants, ", ")+
			" and score the group's agreement", "consensus")
	check := b.Decision("Check Consensus")
	agreed := b.Success("Consensus Reached")

	b.Start(discuss)
	b.Edge(discuss, check)
	b.LoopEdge(check, discuss,
		fmt.Sprintf("consensus < %v and iteration < %d", threshold, maxRounds))
	b.Edge(check, agreed)

	return b.Build()
}
