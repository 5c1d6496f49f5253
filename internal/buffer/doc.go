// Package buffer provides the preallocated buffers that carry input from the
// reader goroutine to the workers.
//
// # Ownership
//
// Every Buffer is at any moment in exactly one place: the free list, the
// reader's hand, the filled queue, or one worker's hand. Pool methods move
// buffers between these places under one mutex:
//
//	free ──AcquireFree──▶ reader ──PublishFilled──▶ filled ──AcquireFilled──▶ worker
//	  ▲                     │                                                   │
//	  └─────────────────────┴──────────────────ReleaseFree──────────────────────┘
//
// Counts reports the four populations; their sum is always the number of
// buffers passed to NewPool.
//
// # Reader
//
//	b, err := pool.AcquireFree()
//	b.Reset(offset)
//	b.Append(carry)
//	n, _ := src.ReadAt(b.Free(), offset+int64(len(carry)))
//	b.Grow(n)
//	b.SetEnd(bytes.LastIndexByte(b.Filled(), '\n') + 1)
//	pool.PublishFilled(b)
//	...
//	pool.MarkFinished()
//
// # Workers
//
//	for {
//	    b, ok := pool.AcquireFilled()
//	    if !ok {
//	        return
//	    }
//	    process(b.Records())
//	    pool.ReleaseFree(b)
//	}
//
// # Shutdown
//
// MarkFinished lets workers drain what is queued and then stop. Abort stops
// everybody at once: blocked acquires return immediately and later ones
// fail, which is how an error in one goroutine ends the others.
package buffer
