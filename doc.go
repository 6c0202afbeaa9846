// Package passcracker runs a parallel brute-force search over a
// sequence.Sequence.
//
// A single Supplier drains the sequence into a bounded queue. A pool of
// workers pops candidates, renders them through the alphabet and asks an
// Oracle whether the password is correct. The first match cancels the whole
// search. Observers such as the progress Monitor and the CheckpointWriter
// sample the last tested candidate while the search runs and once more when
// it stops, so an interrupted search can be resumed from the checkpoint.
//
// Example usage:
//
//	seq, _ := sequence.New(abc, sequence.Simple, 1, 6, nil)
//	search, _ := passcracker.NewSearch(seq, oracle, passcracker.Options{
//	    Observers: []passcracker.Observer{
//	        passcracker.NewMonitor(time.Second, func(p passcracker.Progress) {
//	            fmt.Fprintf(os.Stderr, "\r%s", p)
//	        }),
//	    },
//	})
//	result, err := search.Run(ctx)
//	if err == nil {
//	    fmt.Println("found:", result.Password)
//	}
package passcracker

// Log field names shared by the search and the command line.
const (
	FieldWorker    = "worker"
	FieldCandidate = "candidate"
	FieldIndex     = "index"
	FieldPath      = "path"
	FieldRunID     = "run_id"
)
