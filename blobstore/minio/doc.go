// Package minio implements blobstore.Store for MinIO and other
// S3-compatible object stores using minio-go.
//
// Example:
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	store := minio.NewStore(client, "termid", "ids/")
package minio
