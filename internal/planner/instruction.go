package planner

import (
	"fmt"
	"strings"

	"github.com/liftwise/liftwise/internal/hevy"
)

// seedQueries widen retrieval toward program-design material before the
// plan instruction runs.
var seedQueries = []string{
	"training volume and frequency",
	"weekly program design principles",
	"minimalist training and compound movements",
}

// planInstruction is the structured weekly-plan request. It names the
// agent's tools explicitly and ships a minimal valid create_routine
// payload so smaller models do not have to invent the shape.
var planInstruction = fmt.Sprintf(`Goal: create a minimalist weekly workout plan.

Steps:
1) List exercise templates: %s(page=1, pageSize=100)
2) Fetch recent history: %s(pageSize=10)
3) Analyze the history for most and least trained muscle groups and weekly frequency.
4) Create a folder and capture its id:
   %s(payload={"routine_folder": {"title": "Week XX"}})
5) For each training day (2-4 strength days, optional cardio):
   - Compound-focused sessions: 6-8 exercises, 3-4 sets, about 45 minutes
   - Add a 15-minute cardio finisher (treadmill or cycle)
   - Create the routine with a minimal valid payload (omit weight if unknown):
     %s(payload={"routine": {
       "title": "<Day Name>",
       "folder_id": <folder_id>,
       "notes": "Minimalist session",
       "exercises": [
         {"exercise_template_id": "<ID>", "rest_seconds": 90,
          "sets": [{"reps": 5}, {"reps": 5}, {"reps": 5}]}
       ]
     }})

Finish by presenting the full week as a readable plan.`,
	hevy.ToolGetExerciseTemplates,
	hevy.ToolGetWorkouts,
	hevy.ToolCreateRoutineFolder,
	hevy.ToolCreateRoutine,
)

// reviseInstruction carries the prior plan and the user's feedback into
// one regeneration request.
func reviseInstruction(plan, feedback string) string {
	var b strings.Builder
	b.WriteString("Revise this weekly workout plan according to the feedback. Keep the same structure and present the full revised week.\n\nCurrent plan:\n")
	b.WriteString(plan)
	b.WriteString("\n\nFeedback:\n")
	b.WriteString(feedback)
	return b.String()
}

// finalizeInstruction asks the agent to materialize the approved plan
// in the user's training app.
func finalizeInstruction(plan string) string {
	var b strings.Builder
	b.WriteString("The user approved this weekly plan. Create the routine folder and routines now using ")
	b.WriteString(hevy.ToolCreateRoutineFolder)
	b.WriteString(" and ")
	b.WriteString(hevy.ToolCreateRoutine)
	b.WriteString(", then confirm what was created.\n\nApproved plan:\n")
	b.WriteString(plan)
	return b.String()
}
