// Package s3 implements blobstore.Store on Amazon S3.
//
// Small blobs are written with a single PutObject carrying a CRC32C checksum;
// blobs at or above the multipart threshold go through the SDK upload
// manager. S3 object writes are atomic, so readers never observe a partially
// written shard.
package s3
