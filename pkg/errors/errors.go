package errors

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrCourseNotFound     = errors.New("course not found")
	ErrPurchaseNotFound   = errors.New("purchase not found")
	ErrRequestNotFound    = errors.New("instructor request not found")
	ErrNotCourseOwner     = errors.New("course does not belong to instructor")
	ErrNotEnrolled        = errors.New("user has not purchased this course")
	ErrInvalidRating      = errors.New("rating must be between 1 and 5")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidInput       = errors.New("invalid input")
	ErrAlreadyInstructor  = errors.New("user is already an instructor")
	ErrAdminCannotRequest = errors.New("admins cannot request instructor role")
	ErrPendingRequest     = errors.New("a pending instructor request already exists")
	ErrDailyLimitReached  = errors.New("daily instructor request limit reached")
	ErrCourseHasStudents  = errors.New("course has enrolled students")
	ErrCourseHasPurchases = errors.New("course has purchase history")
	ErrUnauthorized       = errors.New("unauthorized access")
	ErrInternal           = errors.New("internal error")
)
