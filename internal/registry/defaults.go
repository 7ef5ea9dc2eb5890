package registry

// Default returns the iowarp-core component catalog. The order and flag sets
// mirror the upstream release pipeline: transport primitives first, then the
// runtime, then the transfer and assimilation engines on top.
func Default() *Registry {
	r := New()
	r.Add(&Spec{
		Name: "context-transport-primitives",
		Repo: "github.com/iowarp/context-transport-primitives",
		Flags: map[string]bool{
			"HSHM_ENABLE_CUDA": false,
			"HSHM_ENABLE_ROCM": false,
			"HSHM_ENABLE_MPI":  false,
			"HSHM_ENABLE_ZMQ":  false,
		},
	})
	r.Add(&Spec{
		Name: "runtime",
		Repo: "github.com/iowarp/runtime",
		Deps: []string{"context-transport-primitives"},
	})
	r.Add(&Spec{
		Name: "context-transfer-engine",
		Repo: "github.com/iowarp/context-transfer-engine",
		Deps: []string{"runtime"},
	})
	r.Add(&Spec{
		Name: "context-assimilation-engine",
		Repo: "github.com/iowarp/context-assimilation-engine",
		Deps: []string{"context-transfer-engine"},
	})
	return r
}
