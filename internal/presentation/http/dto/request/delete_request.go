package request

// DeleteRequest carries the explicit confirmation required for deletions
type DeleteRequest struct {
	Confirm bool `form:"confirm"`
}
