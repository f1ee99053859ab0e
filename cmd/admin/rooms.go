package main

import (
	"encoding/json"
	"fmt"
	"pairlab/backend/internal/chathub"
	"pairlab/backend/internal/models"
	"pairlab/backend/internal/storage"
	"sort"

	"github.com/spf13/cobra"
)

func newRoomsCmd(open storeOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "Inspect and end rooms",
	}

	cmd.AddCommand(
		newRoomsShowCmd(open),
		newRoomsMembersCmd(open),
		newRoomsWaitingCmd(open),
		newRoomsEndCmd(open),
	)
	return cmd
}

// withStore opens the store for the duration of fn.
func withStore(open storeOpener, fn func(s storage.Storage) error) error {
	s, release, err := open()
	if err != nil {
		return err
	}
	defer release()
	return fn(s)
}

func newRoomsShowCmd(open storeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "show <room_id>",
		Short: "Print a room as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(open, func(s storage.Storage) error {
				room, err := chathub.NewQueryService(s).GetRoom(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				raw, err := json.MarshalIndent(room, "", "  ")
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
				return nil
			})
		},
	}
}

func newRoomsMembersCmd(open storeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "members <room_id>",
		Short: "List the participants of a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(open, func(s storage.Storage) error {
				members, err := chathub.NewQueryService(s).ListMembers(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if len(members) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "members: none")
					return nil
				}
				for _, m := range members {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", m.UserID, m.UserName)
				}
				return nil
			})
		},
	}
}

func newRoomsWaitingCmd(open storeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "waiting <room_type>",
		Short: "List waiting rooms of a type, oldest first, with member counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roomType := models.RoomType(args[0])
			if !roomType.Valid() {
				return fmt.Errorf("%w: %q", chathub.ErrUnknownRoomType, roomType)
			}
			return withStore(open, func(s storage.Storage) error {
				rooms, err := s.FindWaitingRooms(cmd.Context(), roomType)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "waiting %s rooms: %d\n", roomType, len(rooms))
				for _, room := range rooms {
					count, err := s.CountMembers(cmd.Context(), room.ID)
					if err != nil {
						return err
					}
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\tmembers=%d\tcreated=%s%s\n",
						room.ID, count, room.CreatedAt.Format("2006-01-02T15:04:05Z07:00"), formatAssignments(room.ConfederateAssignments))
				}
				return nil
			})
		},
	}
}

func newRoomsEndCmd(open storeOpener) *cobra.Command {
	var userID, userName string

	cmd := &cobra.Command{
		Use:   "end <room_id>",
		Short: "Record a participant leaving and end the room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(open, func(s storage.Storage) error {
				if err := chathub.NewLifecycleService(s, s, nil).Exit(cmd.Context(), args[0], userID, userName); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Room %s ended.\n", args[0])
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&userID, "user-id", "", "participant leaving the room")
	cmd.Flags().StringVar(&userName, "user-name", "", "display name used in the exit notice")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}

func formatAssignments(assignments map[string]string) string {
	if len(assignments) == 0 {
		return ""
	}
	slots := make([]string, 0, len(assignments))
	for slot := range assignments {
		slots = append(slots, slot)
	}
	sort.Strings(slots)

	out := ""
	for _, slot := range slots {
		out += fmt.Sprintf("\t%s=%s", slot, assignments[slot])
	}
	return out
}
