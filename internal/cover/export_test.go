package cover

// SetRemoveFile replaces the function used to delete consumed source images.
func (r *Resolver) SetRemoveFile(fn func(string) error) { r.removeFile = fn }
