// Package statecraft is a hierarchical statechart interpreter: compound,
// parallel, final, and history states; guarded transitions; delayed (`after`)
// transitions; invoked services; and a run-to-completion event loop, in the
// style of SCXML/Harel statecharts.
//
// A Machine is built from a Chart (internal/chart) via Builder, wired with
// collaborators through functional options, and driven with Start/Send/Stop:
//
//	b := statecraft.NewBuilder("light").WithInitial("green")
//	b.State("green").On("TIMER", statecraft.To("yellow"))
//	b.State("yellow").On("TIMER", statecraft.To("red"))
//	b.State("red").On("TIMER", statecraft.To("green"))
//
//	m, err := statecraft.New(b, nil,
//		statecraft.WithLogger(logger),
//		statecraft.WithActionRunner(runner),
//	)
//	if err != nil { ... }
//	if err := m.Start(context.Background()); err != nil { ... }
//	defer m.Stop()
//	m.Send(context.Background(), "TIMER", nil)
package statecraft
