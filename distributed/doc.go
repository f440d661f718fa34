package distributed

/*

# Distributed work coordination

The distributed coordinator hands work units to remote workers and guards
against worker loss. Workers register, pull units, report completions, and
heartbeat their throughput. A background sweeper re-queues any unit whose
assignment has outlived the work timeout; the late completion that may
still arrive afterwards is dropped silently.

Unit state machine:

	           assign
	  Pending ───────────▶ InProgress
	     ▲                     │
	     │ timeout             │ report_completion
	     │ reassign            ▼
	     └────────────────── Completed

Reassignment is LIFO: a timed out unit goes to the front of the pending
queue, ahead of fresh generation, so the coverage hole it represents is
closed promptly.

The worker registry is guarded by the coordinator's mutex. The ledger keeps
pending, in-flight and completed units under its own single mutex, so the
pending queue and in-flight map are never locked apart; registry and ledger
are not held under one lock. The result callback fires outside both.
Transport is the host's concern: the coordinator exposes the
operations a wire layer calls, it does not listen on anything.

*/
