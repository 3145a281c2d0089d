// Package modelimage loads model instances described in YAML.
//
// A model image names a model and lists its parameters with element type,
// shape, storage layout and initial value. Build lays the parameters out in
// a byte block with natural alignment and produces the mapping metadata a
// tunable.Handle is built from; Open does both and applies the initial
// values. Save writes an image back with the values currently held by a
// handle, so that tuned parameters can be persisted.
//
//	model: Controller
//	params:
//	  - name: gain
//	    type: double
//	    value: 1.5
//	  - name: table
//	    type: single
//	    rows: 2
//	    cols: 3
//	    value: [[1, 2, 3], [4, 5, 6]]
//	  - name: pid
//	    members:
//	      - {name: kp, type: double, value: 0.8}
//	      - {name: ki, type: single}
package modelimage
