// Package slicecopy copies objects between two object-storage locations,
// spreading them over a fixed number of numbered destination folders.
//
// An object's folder ("slice") is the integer before the first "-" in its
// file name, modulo the slice count. With 10 slices and destination dir
// "out", the key "in/1700000005-b.txt" is copied to "out/5/1700000005-b.txt".
//
// The storage itself is reached through slicetypes.Backend; the backend
// subpackages provide implementations for S3, Google Cloud Storage and MinIO.
//
// Example usage:
//
//	backend, err := gcs.New(ctx)
//	if err != nil {
//	    return err
//	}
//
//	copier, err := slicecopy.New(backend,
//	    slicecopy.WithMaxWorkers(16),
//	    slicecopy.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//
//	result, err := copier.Run(ctx, slicetypes.Job{
//	    SourceBucket:      "src",
//	    SourcePrefix:      "in/",
//	    DestinationBucket: "dst",
//	    DestinationDir:    "out",
//	    Slices:            10,
//	})
package slicecopy
