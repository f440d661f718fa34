package taskpool

/*

# Priority task runtime

This package drives candidate batches inside a worker process: a fixed set
of OS-thread-backed workers pulling from a single shared priority queue
under one mutex.

Scheduling is deliberately simple. Within a priority class tasks run in
submission order; across classes a higher priority always wins; ties break
by submission order. There is no work stealing here: the coordinator steals
at the work-unit level, which is the granularity that matters.

Pause and resume set a flag read by workers between tasks; a task already
executing is never interrupted. Cancellation is cooperative via Token: tasks
observing a canceled token should return promptly, and the runtime never
force-kills. A panic inside a task is caught per task, counted and reported
on the task's handle; it does not terminate the worker.

Shutdown drops any tasks still pending. Callers that need a drain call Wait
before Shutdown.

*/
