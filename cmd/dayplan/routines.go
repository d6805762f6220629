package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nhle/dayplan/internal/model"
)

func routinesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routines",
		Short: "Manage routine templates",
	}
	cmd.AddCommand(routinesImportCmd())
	return cmd
}

func routinesImportCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Create routines from a YAML template file",
		Example: `  # morning.yaml
  routines:
    - name: Morning
      days: [MO, TU, WE, TH, FR]
      start_time: "07:00"
      end_time: "07:45"
      tasks:
        - title: Stretch
          duration: 15`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()

			routines, err := parseRoutines(f, user)
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			for _, r := range routines {
				created, err := s.CreateRoutine(cmd.Context(), r)
				if err != nil {
					return fmt.Errorf("creating routine %q: %w", r.Name, err)
				}
				fmt.Printf("  + %s (%s %s-%s, %d tasks)\n",
					created.Name, created.Days, created.StartTime, created.EndTime, len(created.Tasks))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "user id owning the routines")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

type routineFile struct {
	Routines []routineTemplate `yaml:"routines"`
}

type routineTemplate struct {
	Name      string         `yaml:"name"`
	Days      []string       `yaml:"days"`
	StartTime string         `yaml:"start_time"`
	EndTime   string         `yaml:"end_time"`
	Active    *bool          `yaml:"active"`
	Tasks     []taskTemplate `yaml:"tasks"`
}

type taskTemplate struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Duration    int    `yaml:"duration"`
	Priority    int    `yaml:"priority"`
}

// parseRoutines decodes a routine template file. Routines are active
// unless the file says otherwise.
func parseRoutines(r io.Reader, userID string) ([]model.Routine, error) {
	var file routineFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("no routines found")
		}
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}
	if len(file.Routines) == 0 {
		return nil, fmt.Errorf("no routines found")
	}

	out := make([]model.Routine, 0, len(file.Routines))
	for _, t := range file.Routines {
		r := model.Routine{
			UserID:    userID,
			Name:      strings.TrimSpace(t.Name),
			Days:      strings.Join(t.Days, ","),
			StartTime: t.StartTime,
			EndTime:   t.EndTime,
			Active:    t.Active == nil || *t.Active,
		}
		for _, task := range t.Tasks {
			r.Tasks = append(r.Tasks, model.Task{
				UserID:      userID,
				Title:       task.Title,
				Description: task.Description,
				Duration:    task.Duration,
				Priority:    task.Priority,
			})
		}
		out = append(out, r)
	}
	return out, nil
}
