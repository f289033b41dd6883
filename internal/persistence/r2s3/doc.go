// Package r2s3 publishes a combined world archive to an S3-compatible bucket
// such as Cloudflare R2. Requests are path-style PUTs signed with SigV4.
package r2s3
