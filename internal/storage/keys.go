package storage

const (
	KeyAuthUser          = "starpath_auth_user"
	KeyAuthProfile       = "starpath_auth_profile"
	KeyAuthSession       = "starpath_auth_session"
	KeyStudentActivities = "starpath_student_activities"
	KeyStudentStats      = "starpath_student_stats"
)

// ClientNamespace is the key prefix owning one browser client's keys.
func ClientNamespace(clientID string) string {
	return "client:" + clientID + ":"
}
