package hevy

// Tool names exposed by the Hevy MCP server. The model calls these by
// name; prompts that reference them (weekly-plan generation) must match
// the server's surface exactly.
const (
	ToolGetWorkouts          = "get_workouts"
	ToolGetWorkout           = "get_workout"
	ToolGetWorkoutsCount     = "get_workouts_count"
	ToolGetRoutines          = "get_routines"
	ToolGetRoutine           = "get_routine"
	ToolCreateRoutine        = "create_routine"
	ToolUpdateRoutine        = "update_routine"
	ToolGetRoutineFolders    = "get_routine_folders"
	ToolGetRoutineFolder     = "get_routine_folder"
	ToolCreateRoutineFolder  = "create_routine_folder"
	ToolGetExerciseTemplates = "get_exercise_templates"
	ToolGetExerciseTemplate  = "get_exercise_template"
	ToolGetExerciseHistory   = "get_exercise_history"
)
