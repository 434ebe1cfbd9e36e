package model

import "github.com/gagliardetto/solana-go"

// Entry is one submitted gif link as stored by the board program.
type Entry struct {
	Link      string           `json:"gif_link"`
	Submitter solana.PublicKey `json:"user_address"`
}

// Board is a snapshot of the base account.
type Board struct {
	TotalGifs uint64  `json:"total_gifs"`
	Entries   []Entry `json:"gif_list"`
}
