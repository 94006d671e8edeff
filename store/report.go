package store

// reportCompensationFailure records a Put whose blob write and rollback both
// failed. The DynamoDB item at path now points to a blob that doesn't exist.
func (s *Store) reportCompensationFailure(path string, blobErr, undoErr error) {
	s.logger.Error("put rollback failed, item points to missing blob",
		"path", path,
		"bucket", s.config.Bucket,
		"blobError", blobErr,
		"error", undoErr,
	)
	s.metrics.compensationFailed()
}

// reportInconsistency records an operation that took effect in DynamoDB
// while its paired S3 call failed.
func (s *Store) reportInconsistency(operation, path string, err error) {
	s.logger.Warn("structured and blob stores diverged",
		"operation", operation,
		"path", path,
		"bucket", s.config.Bucket,
		"error", err,
	)
	s.metrics.inconsistent(operation)
}
