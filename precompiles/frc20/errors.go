package frc20

import errorsmod "cosmossdk.io/errors"

const ModuleName = "frc20"

var (
	errApproveToZeroAddress    = errorsmod.Register(ModuleName, 1, "FRC20: approve to the zero address")
	errTransferToZeroAddress   = errorsmod.Register(ModuleName, 2, "FRC20: transfer to the zero address")
	errTransferFromZeroAddress = errorsmod.Register(ModuleName, 3, "FRC20: transfer from the zero address")
	errAllowanceExceeded       = errorsmod.Register(ModuleName, 4, "FRC20: transfer amount exceeds allowance")
	errAmountOverflow          = errorsmod.Register(ModuleName, 5, "FRC20: amount exceeds uint256 range")
)
