package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"siteline/internal/app"
	"siteline/internal/config"
	"siteline/internal/db"
	"siteline/internal/domain"
	"siteline/internal/export"
	"siteline/internal/logging"
	"siteline/internal/metrics"
	"siteline/internal/report"
	"siteline/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "sl",
	Short: "Siteline CLI",
	Long: `Siteline manages engineering-inspection projects and turns site-visit
records into Arabic field reports.
Core concepts:
- Workspace: your .siteline directory with the database; report defaults
  live in siteline.yml next to it.
- Project: a construction job with its contract data, tasks, site visits
  and the five inspection phases.
- Tasks: inspection work items grouped by phase; completing one stamps a
  completion time and moves the numbers on the report.
- Site visits: dated inspection records with progress, quality rating
  and safety compliance.
- Reports: five-section Arabic RTL documents rendered to HTML or PDF.
- Snapshot: a versioned JSON export of everything, importable elsewhere.
- Event log: diary of changes, view with 'sl log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init()
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("SITELINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("project", "", "project id")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("project", rootCmd.PersistentFlags().Lookup("project"))
}

func registerCommands() {
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(visitCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(dataCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(configCmd())
}

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage projects"}
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectCreateCmd())
	prj.AddCommand(projectShowCmd())
	prj.AddCommand(projectUpdateCmd())
	prj.AddCommand(projectDeleteCmd())
	prj.AddCommand(projectSearchCmd())
	return prj
}

func projectListCmd() *cobra.Command {
	var status, contractor, projectType string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				var items []domain.Project
				if status == "" && contractor == "" && projectType == "" {
					items = a.Store.List()
				} else {
					items = a.Store.Filter(domain.ProjectFilter{
						Status:      status,
						Contractor:  contractor,
						ProjectType: projectType,
					})
				}
				return printProjects(items)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().StringVar(&contractor, "contractor", "", "contractor filter")
	cmd.Flags().StringVar(&projectType, "type", "", "project type filter")
	return cmd
}

func projectCreateCmd() *cobra.Command {
	var draft domain.ProjectDraft
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(draft.Name) == "" {
				return fmt.Errorf("--name required")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				p, err := a.Store.CreateProject(ctx, draft)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&draft.Name, "name", "", "project name")
	cmd.Flags().StringVar(&draft.Description, "description", "", "description")
	cmd.Flags().StringVar(&draft.Status, "status", "", "status (planning, active, completed, onHold, cancelled)")
	cmd.Flags().StringVar(&draft.Location, "location", "", "site location")
	cmd.Flags().StringVar(&draft.Contractor, "contractor", "", "contractor name")
	cmd.Flags().StringVar(&draft.ClientName, "client", "", "client name")
	cmd.Flags().StringVar(&draft.ProjectManager, "manager", "", "project manager")
	cmd.Flags().StringVar(&draft.ProjectNumber, "number", "", "project number")
	cmd.Flags().StringVar(&draft.MunicipalProjectNumber, "municipal-number", "", "municipal project number")
	cmd.Flags().StringVar(&draft.ConsultantName, "consultant", "", "consultant name")
	cmd.Flags().StringVar(&draft.ProjectType, "type", "", "project type (residential, commercial, infrastructure, industrial)")
	cmd.Flags().Float64Var(&draft.Budget, "budget", 0, "budget")
	cmd.Flags().Float64Var(&draft.ProjectValue, "value", 0, "contract value")
	cmd.Flags().Float64Var(&draft.TotalArea, "total-area", 0, "total area (m2)")
	cmd.Flags().Float64Var(&draft.BuildingHeight, "building-height", 0, "building height (m)")
	cmd.Flags().IntVar(&draft.NumberOfFloors, "floors", 0, "number of floors")
	cmd.Flags().StringVar(&draft.StartDate, "start-date", "", "start date (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&draft.ContractDate, "contract-date", "", "contract date")
	cmd.Flags().StringVar(&draft.ExpectedEndDate, "end-date", "", "expected end date")
	cmd.Flags().StringVar(&draft.CoverImage, "cover-image", "", "cover image URI")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func projectShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Show a project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				id, err := targetProject(a, args)
				if err != nil {
					return err
				}
				p, err := a.Store.Get(id)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	return cmd
}

func projectUpdateCmd() *cobra.Command {
	var name, description, status, location, contractor, client, manager string
	var consultant, projectType, startDate, contractDate, endDate, coverImage string
	var municipalNumber string
	var budget, value, totalArea, buildingHeight float64
	var floors int
	cmd := &cobra.Command{
		Use:   "update [id]",
		Short: "Update a project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				id, err := targetProject(a, args)
				if err != nil {
					return err
				}
				patch := domain.ProjectPatch{
					Name:                   changedString(cmd, "name", &name),
					Description:            changedString(cmd, "description", &description),
					Status:                 changedString(cmd, "status", &status),
					Location:               changedString(cmd, "location", &location),
					Contractor:             changedString(cmd, "contractor", &contractor),
					ClientName:             changedString(cmd, "client", &client),
					ProjectManager:         changedString(cmd, "manager", &manager),
					MunicipalProjectNumber: changedString(cmd, "municipal-number", &municipalNumber),
					ConsultantName:         changedString(cmd, "consultant", &consultant),
					ProjectType:            changedString(cmd, "type", &projectType),
					Budget:                 changedFloat(cmd, "budget", &budget),
					ProjectValue:           changedFloat(cmd, "value", &value),
					TotalArea:              changedFloat(cmd, "total-area", &totalArea),
					BuildingHeight:         changedFloat(cmd, "building-height", &buildingHeight),
					NumberOfFloors:         changedInt(cmd, "floors", &floors),
					StartDate:              changedString(cmd, "start-date", &startDate),
					ContractDate:           changedString(cmd, "contract-date", &contractDate),
					ExpectedEndDate:        changedString(cmd, "end-date", &endDate),
					CoverImage:             changedString(cmd, "cover-image", &coverImage),
				}
				p, err := a.Store.UpdateProject(ctx, id, patch)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&status, "status", "", "status (planning, active, completed, onHold, cancelled)")
	cmd.Flags().StringVar(&location, "location", "", "site location")
	cmd.Flags().StringVar(&contractor, "contractor", "", "contractor name")
	cmd.Flags().StringVar(&client, "client", "", "client name")
	cmd.Flags().StringVar(&manager, "manager", "", "project manager")
	cmd.Flags().StringVar(&municipalNumber, "municipal-number", "", "municipal project number")
	cmd.Flags().StringVar(&consultant, "consultant", "", "consultant name")
	cmd.Flags().StringVar(&projectType, "type", "", "project type")
	cmd.Flags().Float64Var(&budget, "budget", 0, "budget")
	cmd.Flags().Float64Var(&value, "value", 0, "contract value")
	cmd.Flags().Float64Var(&totalArea, "total-area", 0, "total area (m2)")
	cmd.Flags().Float64Var(&buildingHeight, "building-height", 0, "building height (m)")
	cmd.Flags().IntVar(&floors, "floors", 0, "number of floors")
	cmd.Flags().StringVar(&startDate, "start-date", "", "start date")
	cmd.Flags().StringVar(&contractDate, "contract-date", "", "contract date")
	cmd.Flags().StringVar(&endDate, "end-date", "", "expected end date")
	cmd.Flags().StringVar(&coverImage, "cover-image", "", "cover image URI")
	return cmd
}

func projectDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				id, err := targetProject(a, args)
				if err != nil {
					return err
				}
				return a.Store.DeleteProject(ctx, id)
			})
		},
	}
	return cmd
}

func projectSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search projects by name, description, location or contractor",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				return printProjects(a.Store.Search(query))
			})
		},
	}
	return cmd
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
		Long:  "Tasks are the inspection work items, grouped into the five phases. Completing one stamps its completion time and feeds the project's completion rate.",
	}
	task.AddCommand(taskAddCmd())
	task.AddCommand(taskListCmd())
	task.AddCommand(taskUpdateCmd())
	task.AddCommand(taskToggleCmd())
	task.AddCommand(taskDeleteCmd())
	return task
}

func taskAddCmd() *cobra.Command {
	var draft domain.TaskDraft
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(draft.Title) == "" {
				return fmt.Errorf("--title required")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				projectID, err := a.ResolveProject(viper.GetString("project"))
				if err != nil {
					return err
				}
				t, err := a.Store.AddTask(ctx, projectID, draft)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&draft.Title, "title", "", "task title")
	cmd.Flags().StringVar(&draft.Description, "description", "", "description")
	cmd.Flags().StringVar(&draft.Phase, "phase", "", "phase (sitePreparation, foundationWork, structuralWork, finishingWork, landscaping)")
	cmd.Flags().StringVar(&draft.Priority, "priority", "", "priority (low, medium, high)")
	cmd.Flags().StringVar(&draft.ImageURI, "image", "", "image URI")
	cmd.Flags().StringVar(&draft.Notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				projectID, err := a.ResolveProject(viper.GetString("project"))
				if err != nil {
					return err
				}
				p, err := a.Store.Get(projectID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(p.Tasks)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Phase", "Priority", "Done"})
				for _, t := range p.Tasks {
					done := ""
					if t.Completed {
						done = "x"
					}
					tw.AppendRow(table.Row{t.ID, t.Title, t.Phase, t.Priority, done})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func taskUpdateCmd() *cobra.Command {
	var title, description, phase, priority, image, notes string
	var completed bool
	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Update a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID := args[0]
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				projectID, err := a.ResolveProject(viper.GetString("project"))
				if err != nil {
					return err
				}
				patch := domain.TaskPatch{
					Title:       changedString(cmd, "title", &title),
					Description: changedString(cmd, "description", &description),
					Phase:       changedString(cmd, "phase", &phase),
					Priority:    changedString(cmd, "priority", &priority),
					ImageURI:    changedString(cmd, "image", &image),
					Notes:       changedString(cmd, "notes", &notes),
				}
				if cmd.Flags().Changed("completed") {
					patch.Completed = &completed
				}
				t, err := a.Store.UpdateTask(ctx, projectID, taskID, patch)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "task title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&phase, "phase", "", "phase")
	cmd.Flags().StringVar(&priority, "priority", "", "priority")
	cmd.Flags().StringVar(&image, "image", "", "image URI")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	cmd.Flags().BoolVar(&completed, "completed", false, "completed state")
	return cmd
}

func taskToggleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toggle <task-id>",
		Short: "Toggle task completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID := args[0]
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				projectID, err := a.ResolveProject(viper.GetString("project"))
				if err != nil {
					return err
				}
				p, err := a.Store.Get(projectID)
				if err != nil {
					return err
				}
				flipped := false
				found := false
				for _, t := range p.Tasks {
					if t.ID == taskID {
						flipped = !t.Completed
						found = true
						break
					}
				}
				if !found {
					return fmt.Errorf("task %s: not found", taskID)
				}
				t, err := a.Store.UpdateTask(ctx, projectID, taskID, domain.TaskPatch{Completed: &flipped})
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	return cmd
}

func taskDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID := args[0]
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				projectID, err := a.ResolveProject(viper.GetString("project"))
				if err != nil {
					return err
				}
				return a.Store.DeleteTask(ctx, projectID, taskID)
			})
		},
	}
	return cmd
}

func visitCmd() *cobra.Command {
	visit := &cobra.Command{
		Use:   "visit",
		Short: "Manage site visits",
		Long:  "Site visits record a dated inspection: who inspected, weather, overall progress, a 1-5 quality rating and safety compliance.",
	}
	visit.AddCommand(visitAddCmd())
	visit.AddCommand(visitListCmd())
	visit.AddCommand(visitUpdateCmd())
	visit.AddCommand(visitDeleteCmd())
	return visit
}

func visitAddCmd() *cobra.Command {
	var draft domain.SiteVisitDraft
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a site visit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(draft.Inspector) == "" {
				return fmt.Errorf("--inspector required")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				projectID, err := a.ResolveProject(viper.GetString("project"))
				if err != nil {
					return err
				}
				v, err := a.Store.AddSiteVisit(ctx, projectID, draft)
				if err != nil {
					return err
				}
				return printJSONOrTable(v)
			})
		},
	}
	cmd.Flags().StringVar(&draft.VisitDate, "date", "", "visit date (RFC3339, defaults to now)")
	cmd.Flags().StringVar(&draft.Inspector, "inspector", "", "inspector name")
	cmd.Flags().StringVar(&draft.ContractorName, "contractor", "", "contractor name")
	cmd.Flags().StringVar(&draft.ProjectLocation, "location", "", "project location")
	cmd.Flags().StringVar(&draft.WeatherConditions, "weather", "", "weather conditions")
	cmd.Flags().IntVar(&draft.OverallProgress, "progress", 0, "overall progress (0-100)")
	cmd.Flags().IntVar(&draft.QualityRating, "quality", 0, "quality rating (1-5)")
	cmd.Flags().StringVar(&draft.SafetyCompliance, "safety", "", "safety compliance (excellent, good, satisfactory, fair, poor)")
	cmd.Flags().StringVar(&draft.Notes, "notes", "", "notes")
	cmd.Flags().StringArrayVar(&draft.Images, "image", []string{}, "image URI (repeatable)")
	_ = cmd.MarkFlagRequired("inspector")
	return cmd
}

func visitListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List site visits",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				projectID, err := a.ResolveProject(viper.GetString("project"))
				if err != nil {
					return err
				}
				p, err := a.Store.Get(projectID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(p.SiteVisits)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Date", "Inspector", "Progress", "Quality", "Safety"})
				for _, v := range p.SiteVisits {
					tw.AppendRow(table.Row{v.ID, v.VisitDate, v.Inspector, v.OverallProgress, v.QualityRating, v.SafetyCompliance})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func visitUpdateCmd() *cobra.Command {
	var date, inspector, contractor, location, weather, safety, notes string
	var progress, quality int
	cmd := &cobra.Command{
		Use:   "update <visit-id>",
		Short: "Update a site visit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			visitID := args[0]
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				projectID, err := a.ResolveProject(viper.GetString("project"))
				if err != nil {
					return err
				}
				patch := domain.SiteVisitPatch{
					VisitDate:         changedString(cmd, "date", &date),
					Inspector:         changedString(cmd, "inspector", &inspector),
					ContractorName:    changedString(cmd, "contractor", &contractor),
					ProjectLocation:   changedString(cmd, "location", &location),
					WeatherConditions: changedString(cmd, "weather", &weather),
					OverallProgress:   changedInt(cmd, "progress", &progress),
					QualityRating:     changedInt(cmd, "quality", &quality),
					SafetyCompliance:  changedString(cmd, "safety", &safety),
					Notes:             changedString(cmd, "notes", &notes),
				}
				v, err := a.Store.UpdateSiteVisit(ctx, projectID, visitID, patch)
				if err != nil {
					return err
				}
				return printJSONOrTable(v)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "visit date (RFC3339)")
	cmd.Flags().StringVar(&inspector, "inspector", "", "inspector name")
	cmd.Flags().StringVar(&contractor, "contractor", "", "contractor name")
	cmd.Flags().StringVar(&location, "location", "", "project location")
	cmd.Flags().StringVar(&weather, "weather", "", "weather conditions")
	cmd.Flags().IntVar(&progress, "progress", 0, "overall progress (0-100)")
	cmd.Flags().IntVar(&quality, "quality", 0, "quality rating (1-5)")
	cmd.Flags().StringVar(&safety, "safety", "", "safety compliance")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	return cmd
}

func visitDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <visit-id>",
		Short: "Delete a site visit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			visitID := args[0]
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				projectID, err := a.ResolveProject(viper.GetString("project"))
				if err != nil {
					return err
				}
				return a.Store.DeleteSiteVisit(ctx, projectID, visitID)
			})
		},
	}
	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show project status",
		Long:  "The scoreboard for a project: task counts by phase and priority, completion rate and site-visit count.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				projectID, err := a.ResolveProject(viper.GetString("project"))
				if err != nil {
					return err
				}
				p, err := a.Store.Get(projectID)
				if err != nil {
					return err
				}
				sum := metrics.Summarize(p)
				if viper.GetBool("json") {
					return printJSON(map[string]any{
						"project_id": p.ID,
						"name":       p.Name,
						"status":     p.Status,
						"metrics":    sum,
					})
				}
				fmt.Printf("Project: %s (%s)\n", p.Name, p.Status)
				fmt.Printf("Completion: %.2f%% (%d/%d tasks)\n", sum.CompletionRate, sum.CompletedTasks, sum.TotalTasks)
				fmt.Printf("Site visits: %d\n", sum.SiteVisits)
				fmt.Println("Tasks by phase:")
				for _, key := range domain.PhaseKeys() {
					fmt.Printf("  %s: %d\n", key, sum.ByPhase[key])
				}
				fmt.Println("Tasks by priority:")
				for _, key := range []string{"high", "medium", "low"} {
					fmt.Printf("  %s: %d\n", key, sum.ByPriority[key])
				}
				return nil
			})
		},
	}
	return cmd
}

func reportCmd() *cobra.Command {
	rep := &cobra.Command{
		Use:   "report",
		Short: "Generate inspection reports",
	}
	rep.AddCommand(reportGenerateCmd())
	return rep
}

func reportGenerateCmd() *cobra.Command {
	var format, outDir string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the Arabic field report as PDF or HTML",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "pdf", "html":
			default:
				return fmt.Errorf("--format must be pdf or html")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				projectID, err := a.ResolveProject(viper.GetString("project"))
				if err != nil {
					return err
				}
				p, err := a.Store.Get(projectID)
				if err != nil {
					return err
				}
				settings := a.ReportSettings()
				doc := report.Composer{}.Compose(p, settings)
				if format == "html" {
					path, err := export.Save(outDir, doc.SuggestedName, "html", []byte(doc.HTML))
					if err != nil {
						return err
					}
					fmt.Println(path)
					return nil
				}
				pageCfg := export.DefaultPageConfig()
				pageCfg.Landscape = settings.PageLayout == "landscape"
				pdf, err := export.ChromeExporter{}.Render(ctx, doc.HTML, pageCfg)
				if err != nil {
					return fmt.Errorf("pdf render failed (is Chromium installed? set CHROME_BIN): %w", err)
				}
				path, err := export.Save(outDir, doc.SuggestedName, "pdf", pdf)
				if err != nil {
					return err
				}
				fmt.Println(path)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "pdf", "output format (pdf, html)")
	cmd.Flags().StringVar(&outDir, "out", ".", "output directory")
	return cmd
}

func dataCmd() *cobra.Command {
	data := &cobra.Command{
		Use:   "data",
		Short: "Snapshot export, import and wipe",
	}
	data.AddCommand(dataExportCmd())
	data.AddCommand(dataImportCmd())
	data.AddCommand(dataWipeCmd())
	return data
}

func dataExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all projects and settings as a JSON snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				snap, err := a.Gateway.ExportSnapshot(ctx)
				if err != nil {
					return err
				}
				if out == "" {
					fmt.Println(snap)
					return nil
				}
				if err := os.WriteFile(out, []byte(snap), 0o644); err != nil {
					return err
				}
				fmt.Println(out)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write snapshot to file instead of stdout")
	return cmd
}

func dataImportCmd() *cobra.Command {
	var filePath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a JSON snapshot, replacing current data",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(filePath)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				if err := a.Gateway.ImportSnapshot(ctx, string(data)); err != nil {
					return err
				}
				a.Store.Reload(ctx)
				fmt.Printf("Imported %d projects\n", len(a.Store.List()))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "path to snapshot JSON")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func dataWipeCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Delete all projects and settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to wipe without --yes")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				if err := a.Gateway.Wipe(ctx); err != nil {
					return err
				}
				a.Store.Reload(ctx)
				fmt.Println("wiped")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the wipe")
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "The diary of everything that happened: project, task and visit changes, imports and wipes.",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				items, err := a.Events.Tail(ctx, n)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath, exportDir string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				handler, err := server.New(server.Config{
					Store:     a.Store,
					Composer:  report.Composer{},
					Settings:  a.ReportSettings(),
					Exporter:  export.ChromeExporter{},
					ExportDir: exportDir,
					BasePath:  basePath,
					Auth:      server.AuthConfig{JWTSecret: os.Getenv("SITELINE_JWT_SECRET")},
				})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				fmt.Printf("Serving Siteline API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().StringVar(&exportDir, "export-dir", ".", "directory for saved report artifacts")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage siteline.yml",
		Long:  "Config holds the organization identity and the report section toggles used when composing reports.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var orgName string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default siteline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(orgName)), 0o644); err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}
	cmd.Flags().StringVar(&orgName, "org", "Siteline", "organization name")
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSONOrTable(cfg)
		},
	}
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate siteline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := config.Load(viper.GetString("workspace"))
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
	return cmd
}

// --- helpers ---

func withApp(ctx context.Context, fn func(context.Context, *app.Context) error) error {
	a, err := app.Open(ctx, viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func targetProject(a *app.Context, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	return a.ResolveProject(viper.GetString("project"))
}

func printProjects(items []domain.Project) error {
	if viper.GetBool("json") {
		return printJSON(items)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Name", "Status", "Contractor", "Tasks", "Completion"})
	for _, p := range items {
		tw.AppendRow(table.Row{p.ID, p.Name, p.Status, p.Contractor, len(p.Tasks), fmt.Sprintf("%.1f%%", metrics.CompletionRate(p))})
	}
	tw.Render()
	return nil
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func changedString(cmd *cobra.Command, name string, v *string) *string {
	if cmd.Flags().Changed(name) {
		return v
	}
	return nil
}

func changedFloat(cmd *cobra.Command, name string, v *float64) *float64 {
	if cmd.Flags().Changed(name) {
		return v
	}
	return nil
}

func changedInt(cmd *cobra.Command, name string, v *int) *int {
	if cmd.Flags().Changed(name) {
		return v
	}
	return nil
}
