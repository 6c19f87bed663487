// Package account is a bank account aggregate built on the eventledger
// kernel. The business rules are deliberately small; the package exists
// to exercise the storage, replay and concurrency mechanism.
package account

import (
	"errors"

	"github.com/halvden/eventledger"
)

// Created event
type Created struct {
	Owner string
}

// Deposited event
type Deposited struct {
	Amount int64
}

// Withdrawn event
type Withdrawn struct {
	Amount int64
}

// OwnerChanged event
type OwnerChanged struct {
	Owner string
}

// TransferDebited event, emitted on the sending account
type TransferDebited struct {
	Amount int64
	To     string
}

// TransferCredited event, emitted on the receiving account
type TransferCredited struct {
	Amount int64
	From   string
}

// ErrInsufficientFunds when a withdrawal or transfer would take the
// balance below zero. No event is emitted and no state changes.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrInvalidAmount when an amount is zero or negative
var ErrInvalidAmount = errors.New("amount must be positive")

// Account aggregate. Owner and Balance are fully determined by the
// event history.
type Account struct {
	eventledger.Root
	Owner   string
	Balance int64
}

// Create opens an account for the owner under a new unique stream id
func Create(owner string) *Account {
	account := Account{}
	account.TrackChange(&account, &Created{Owner: owner})
	return &account
}

// Deposit adds the amount to the balance
func (a *Account) Deposit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	a.TrackChange(a, &Deposited{Amount: amount})
	return nil
}

// Withdraw removes the amount from the balance. The invariant is
// checked before the event is constructed: a balance can never go
// negative.
func (a *Account) Withdraw(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if a.Balance-amount < 0 {
		return ErrInsufficientFunds
	}
	a.TrackChange(a, &Withdrawn{Amount: amount})
	return nil
}

// ChangeOwner sets a new owner
func (a *Account) ChangeOwner(owner string) {
	a.TrackChange(a, &OwnerChanged{Owner: owner})
}

// TransferTo debits this account and synchronously credits the
// recipient. The two aggregates are saved independently afterwards, on
// their own streams; either append can fail or conflict on its own.
func (a *Account) TransferTo(recipient *Account, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if a.Balance-amount < 0 {
		return ErrInsufficientFunds
	}
	a.TrackChange(a, &TransferDebited{Amount: amount, To: recipient.ID()})
	recipient.credit(amount, a.ID())
	return nil
}

func (a *Account) credit(amount int64, from string) {
	a.TrackChange(a, &TransferCredited{Amount: amount, From: from})
}

// Transition the account state dependent on the events
func (a *Account) Transition(event eventledger.Event) {
	switch e := event.Data().(type) {
	case *Created:
		a.Owner = e.Owner
		a.Balance = 0
	case *Deposited:
		a.Balance += e.Amount
	case *Withdrawn:
		a.Balance -= e.Amount
	case *OwnerChanged:
		a.Owner = e.Owner
	case *TransferDebited:
		a.Balance -= e.Amount
	case *TransferCredited:
		a.Balance += e.Amount
	}
}

// Register the account event kinds
func (a *Account) Register(r eventledger.RegisterFunc) {
	r(
		&Created{},
		&Deposited{},
		&Withdrawn{},
		&OwnerChanged{},
		&TransferDebited{},
		&TransferCredited{},
	)
}
