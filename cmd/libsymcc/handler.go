package main

/*
#include <stdlib.h>
#include "symcc.h"

void symcc_call_test_case_handler(TestCaseHandler handler, const void *data, size_t size) {
	handler(data, size);
}
*/
import "C"

import (
	"sync"
	"unsafe"

	symcc "github.com/y4ngyy/SymCC-Modified"
)

// handlerFunc wraps a C test case handler.
func handlerFunc(h C.TestCaseHandler) symcc.TestCaseHandler {
	if h == nil {
		return nil
	}
	return func(data []byte) {
		p := C.CBytes(data)
		defer C.free(p)
		C.symcc_call_test_case_handler(h, p, C.size_t(len(data)))
	}
}

// regions holds C memory ranges that contain live expression handles, such
// as the shadow memory of instrumented code.
type regions struct {
	mu sync.Mutex
	m  map[unsafe.Pointer]int
}

func (r *regions) add(start unsafe.Pointer, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.m == nil {
		r.m = make(map[unsafe.Pointer]int)
	}
	r.m[start] = n
}

func (r *regions) remove(start unsafe.Pointer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, start)
}

// Roots returns every non-null handle stored in the registered regions.
func (r *regions) Roots() []symcc.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	var a []symcc.Handle
	for start, n := range r.m {
		for _, h := range unsafe.Slice((*C.SymExpr)(start), n) {
			if h != 0 {
				a = append(a, symcc.Handle(h))
			}
		}
	}
	return a
}
