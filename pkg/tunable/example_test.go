package tunable_test

import (
	"fmt"

	"github.com/tunekit/tunekit/pkg/tunable"
)

// Example_registry shows how a model instance publishes its parameter block
// and how a host inspects and modifies it.
func Example_registry() {
	mmi := &tunable.MappingInfo{
		Block: make([]byte, 24),
		Params: []tunable.ParamEntry{
			{Name: "kappa", Type: tunable.Float64, Offset: 0, Rows: 1, Cols: 1},
			{
				Name:   "filter",
				Offset: 8,
				Members: []tunable.ParamEntry{
					{Name: "order", Type: tunable.Uint8, Offset: 0, Rows: 1, Cols: 1},
					{Name: "coef", Type: tunable.Float32, Offset: 4, Rows: 1, Cols: 3},
				},
			},
		},
	}

	h, err := tunable.Begin("SuperABS", mmi)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer h.End()

	_ = h.SetScalar("kappa", 0.25)
	_ = h.SetScalar("filter.order", 2)
	_ = h.SetVector("filter.coef", []float64{0.5, 0.25, 0.125})

	for _, name := range h.ListAll() {
		v, _ := h.GetStructured(name)
		fmt.Println(name, v)
	}

	filter, _ := h.GetStructured("filter")
	fmt.Println("filter", filter)

	// Output:
	// kappa 0.25
	// filter.order 2
	// filter.coef [0.5 0.25 0.125]
	// filter {order: 2, coef: [0.5 0.25 0.125]}
}
