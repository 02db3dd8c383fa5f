package inviter

import (
	"fmt"
	"time"
)

// Status message texts. They are edited into the single status message of a job.

func startText(source, target string) string {
	return fmt.Sprintf("🔄 Starting scrape from %s to %s...", source, target)
}

func resolveErrorText(err error) string {
	return fmt.Sprintf("❌ Error resolving channels: %v", err)
}

func listErrorText(err error) string {
	return fmt.Sprintf("❌ Error fetching members: %v\n\nYou may need admin rights in the source group to see its members.", err)
}

func foundText(total int) string {
	return fmt.Sprintf("Found %d members. Starting to add...", total)
}

func progressText(added int) string {
	return fmt.Sprintf("Progress: Added %d members...", added)
}

func pauseText(p Progress, wait time.Duration) string {
	return fmt.Sprintf("⚠️ FloodWait triggered. Pausing for %s... (Added: %d)", wait, p.Added)
}

func adminRequiredText(p Progress) string {
	return fmt.Sprintf("❌ Error: You need to be an admin in the target channel to add members!\n\nSuccessful: %d\nFailed/Privacy: %d", p.Added, p.Failed)
}

func completedText(p Progress) string {
	return fmt.Sprintf("✅ **Scraping Completed!**\n\nSuccessful: %d\nFailed/Privacy: %d", p.Added, p.Failed)
}

func cancelledText(p Progress) string {
	return fmt.Sprintf("⏹ Scrape cancelled.\n\nSuccessful: %d\nFailed/Privacy: %d", p.Added, p.Failed)
}

// StatusText renders a running job for the .status reply.
func StatusText(j *Job) string {
	p := j.Progress()
	return fmt.Sprintf("Job %s: %s → %s\nState: %s\nProcessed: %d/%d\nSuccessful: %d\nFailed/Privacy: %d\nSkipped: %d",
		j.ID.String()[:8], j.Source, j.Target, j.State(), p.Processed, p.Total, p.Added, p.Failed, p.Skipped)
}
