package store

// Result is returned by every store action. Error holds the text shown to the user;
// Err keeps the original error so callers can branch with errors.Is/As.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Err     error  `json:"-"`
}

func success() Result {
	return Result{Success: true}
}

func failure(err error) Result {
	return Result{Error: err.Error(), Err: err}
}
